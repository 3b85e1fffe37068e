package logs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/charliek/respawn/internal/domain"
)

// makeEvent returns a start event whose PID identifies it
func makeEvent(pid int) domain.SupervisionEvent {
	return domain.StartEvent(time.Now(), "test", pid, nil)
}

func pids(events []domain.SupervisionEvent) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.PID
	}
	return out
}

func TestRingBuffer_Write_Read(t *testing.T) {
	b := NewRingBuffer(5)

	b.Write(makeEvent(1))
	b.Write(makeEvent(2))
	b.Write(makeEvent(3))

	assert.Equal(t, []int{1, 2, 3}, pids(b.Read()))
}

func TestRingBuffer_Overflow(t *testing.T) {
	b := NewRingBuffer(3)

	for i := 1; i <= 4; i++ {
		b.Write(makeEvent(i))
	}

	assert.Equal(t, []int{2, 3, 4}, pids(b.Read()))
	assert.Equal(t, uint64(4), b.Written())
}

func TestRingBuffer_OverflowMultiple(t *testing.T) {
	b := NewRingBuffer(3)

	for i := 1; i <= 10; i++ {
		b.Write(makeEvent(i))
	}

	assert.Equal(t, []int{8, 9, 10}, pids(b.Read()))
	assert.Equal(t, 3, b.Count())
}

func TestRingBuffer_ReadLast(t *testing.T) {
	b := NewRingBuffer(10)
	for i := 1; i <= 5; i++ {
		b.Write(makeEvent(i))
	}

	assert.Equal(t, []int{3, 4, 5}, pids(b.ReadLast(3)))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, pids(b.ReadLast(20)))
	assert.Nil(t, b.ReadLast(0))
}

func TestRingBuffer_ReadLast_Wrapped(t *testing.T) {
	b := NewRingBuffer(4)
	for i := 1; i <= 6; i++ {
		b.Write(makeEvent(i))
	}

	assert.Equal(t, []int{5, 6}, pids(b.ReadLast(2)))
	assert.Equal(t, []int{3, 4, 5, 6}, pids(b.ReadLast(4)))
}

func TestRingBuffer_Empty(t *testing.T) {
	b := NewRingBuffer(5)
	assert.Nil(t, b.Read())
	assert.Equal(t, 0, b.Count())
}

func TestRingBuffer_DefaultCapacity(t *testing.T) {
	b := NewRingBuffer(0)
	assert.Equal(t, 1000, b.Capacity())
}

func TestRingBuffer_Clear(t *testing.T) {
	b := NewRingBuffer(5)
	b.Write(makeEvent(1))
	b.Write(makeEvent(2))

	b.Clear()
	assert.Equal(t, 0, b.Count())
	assert.Nil(t, b.Read())

	b.Write(makeEvent(3))
	assert.Equal(t, []int{3}, pids(b.Read()))
}

func TestRingBuffer_Concurrent(t *testing.T) {
	b := NewRingBuffer(100)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Write(makeEvent(n*100 + j))
			}
		}(i)
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = b.Read()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 100, b.Count())
	assert.Equal(t, uint64(1000), b.Written())
}
