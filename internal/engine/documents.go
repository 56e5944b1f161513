package engine

import (
	"fmt"
	"strings"

	"qualityline/internal/domain"
	"qualityline/internal/store"
)

type DocumentInput struct {
	Title               string
	ProcessIDs          []string
	ISOClauseReferences []string
}

// AddDocument registers evidence. Documents only count toward fulfillment
// for the processes and clauses they name.
func (e Engine) AddDocument(in DocumentInput) (domain.Document, error) {
	if err := required("title", in.Title); err != nil {
		return domain.Document{}, err
	}
	if len(in.ProcessIDs) == 0 {
		return domain.Document{}, fmt.Errorf("%w: at least one process is required", domain.ErrValidation)
	}
	refs := make([]string, 0, len(in.ISOClauseReferences))
	for _, ref := range in.ISOClauseReferences {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return domain.Document{}, fmt.Errorf("%w: empty clause reference", domain.ErrValidation)
		}
		refs = append(refs, ref)
	}
	d := domain.Document{
		ID:                  e.newID(),
		Title:               in.Title,
		ProcessIDs:          appendUnique(nil, in.ProcessIDs),
		ISOClauseReferences: refs,
		CreatedAt:           e.timestamp(),
	}
	err := e.Store.Mutate(func(tx *store.Tx) error {
		for _, pid := range d.ProcessIDs {
			if _, ok := tx.Process(pid); !ok {
				return notFound("process", pid)
			}
		}
		tx.PutDocument(d)
		return nil
	})
	if err != nil {
		return domain.Document{}, err
	}
	return d, nil
}

func (e Engine) RemoveDocument(id string) error {
	return e.Store.Mutate(func(tx *store.Tx) error {
		if !tx.DeleteDocument(id) {
			return notFound("document", id)
		}
		return nil
	})
}

func (e Engine) Document(id string) (domain.Document, bool) {
	return e.Store.Document(id)
}

func (e Engine) Documents() []domain.Document {
	return e.Store.Documents()
}
