package maintenance

import (
	"context"
	"fmt"
	"io"
)

// Result describes what Patch did to one row
type Result struct {
	ID           string `json:"id"`
	Found        bool   `json:"found"`
	Before       string `json:"before,omitempty"`
	After        string `json:"after,omitempty"`
	RowsAffected int64  `json:"rows_affected"`
}

// Patch sets requestType to "federated" in the metadata of row id.
// The before and after values are written to out so an operator can verify
// the change. A missing row is not an error: nothing is written and
// Found is false.
func Patch(ctx context.Context, store *Store, id string, out io.Writer) (Result, error) {
	if out == nil {
		out = io.Discard
	}
	result := Result{ID: id}

	err := store.WithTx(ctx, func(tx *Store) error {
		before, found, err := tx.GetMetadata(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		result.Found = true
		result.Before = string(before)

		after, err := PatchMetadata(before)
		if err != nil {
			return fmt.Errorf("row %s: %w", id, err)
		}
		result.After = string(after)

		n, err := tx.UpdateMetadata(ctx, id, after)
		if err != nil {
			return err
		}
		result.RowsAffected = n
		return nil
	})
	if err != nil {
		return Result{ID: id}, err
	}

	if !result.Found {
		fmt.Fprintf(out, "%s %s: no such row, nothing changed\n", store.Table(), id)
		return result, nil
	}

	before := result.Before
	if before == "" {
		before = "NULL"
	}
	fmt.Fprintf(out, "%s %s before: %s\n", store.Table(), id, before)
	fmt.Fprintf(out, "%s %s after:  %s\n", store.Table(), id, result.After)
	return result, nil
}
