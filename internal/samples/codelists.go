package samples

import (
	"context"
	"fmt"

	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/google/uuid"
)

// CodeListsResult reports what the code-lists sample saw and changed.
type CodeListsResult struct {
	Lists       int
	Code        string
	Description string
}

// CodeLists lists every code list, then adds a document type, changes its
// description and removes it again.
func (r *Runner) CodeLists(ctx context.Context) (*CodeListsResult, error) {
	client, err := r.clients.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, err
	}

	lists, err := client.CodeLists(ctx, "", "")
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		r.logger.Info().
			Str("type", l.Type).
			Str("field", l.Field).
			Int("values", len(l.Values)).
			Msg("Code list")
	}
	result := &CodeListsResult{Lists: len(lists)}

	value := noark.CodeValue{
		Code:        uuid.NewString(),
		Name:        "Test document type",
		Description: "Created by the code-lists sample",
	}
	saved, err := client.PutCodeListValue(ctx, noark.CodeListDokumenttype, value)
	if err != nil {
		return nil, err
	}
	r.logger.Info().Str("code", saved.Code).Msg("Created document type")

	value.Description = "Updated by the code-lists sample"
	saved, err = client.PutCodeListValue(ctx, noark.CodeListDokumenttype, value)
	if err != nil {
		return nil, err
	}
	result.Code, result.Description = saved.Code, saved.Description
	r.logger.Info().Str("code", saved.Code).Str("description", saved.Description).Msg("Updated document type")

	if err := client.DeleteCodeListValue(ctx, noark.CodeListDokumenttype, saved.Code); err != nil {
		return nil, fmt.Errorf("remove document type: %w", err)
	}
	r.logger.Info().Str("code", saved.Code).Msg("Deleted document type")

	return result, nil
}
