package noark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks identifiers assigned locally to unsaved objects.
const TempIDPrefix = "temp-"

// IsTempID reports whether id was assigned by a Transaction and not yet
// replaced by the service.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

const (
	actionSave   = "save"
	actionLink   = "link"
	actionUnlink = "unlink"
	actionDelete = "delete"
)

type transactionAction struct {
	Action   string          `json:"action"`
	Type     string          `json:"type"`
	ID       string          `json:"id"`
	Fields   json.RawMessage `json:"fields,omitempty"`
	Ref      string          `json:"ref,omitempty"`
	LinkToID string          `json:"linkToId,omitempty"`

	entity Entity
}

type transactionRequest struct {
	Actions []transactionAction `json:"actions"`
}

// TransactionResponse holds the objects saved by a committed transaction,
// keyed by the id they had in the request (temporary or real).
type TransactionResponse struct {
	Saved map[string]wireObject `json:"saved"`
}

// Transaction batches save, link, unlink and delete actions that the
// service applies atomically. A Transaction is used for a single Commit.
type Transaction struct {
	client  *Client
	actions []transactionAction
}

// Transaction starts a new, empty transaction.
func (c *Client) Transaction() *Transaction {
	return &Transaction{client: c}
}

// Save adds or updates e. Objects without an id get a temporary one so they
// can be linked before the transaction is committed.
func (t *Transaction) Save(e Entity) *Transaction {
	o := e.object()
	if o.ID == "" {
		o.ID = TempIDPrefix + uuid.NewString()
	}
	t.actions = append(t.actions, transactionAction{
		Action: actionSave,
		Type:   e.EntityType(),
		ID:     o.ID,
		entity: e,
	})
	return t
}

// Link connects from to the object to through the reference field ref.
func (t *Transaction) Link(from Entity, ref string, to Entity) *Transaction {
	return t.LinkID(from, ref, IDOf(to))
}

// LinkID connects from to an already stored object by id.
func (t *Transaction) LinkID(from Entity, ref, toID string) *Transaction {
	t.actions = append(t.actions, transactionAction{
		Action:   actionLink,
		Type:     from.EntityType(),
		ID:       IDOf(from),
		Ref:      ref,
		LinkToID: toID,
	})
	return t
}

// Unlink removes the reference ref from from to to.
func (t *Transaction) Unlink(from Entity, ref string, to Entity) *Transaction {
	t.actions = append(t.actions, transactionAction{
		Action:   actionUnlink,
		Type:     from.EntityType(),
		ID:       IDOf(from),
		Ref:      ref,
		LinkToID: IDOf(to),
	})
	return t
}

// Delete removes e.
func (t *Transaction) Delete(e Entity) *Transaction {
	t.actions = append(t.actions, transactionAction{
		Action: actionDelete,
		Type:   e.EntityType(),
		ID:     IDOf(e),
	})
	return t
}

// Len returns the number of queued actions.
func (t *Transaction) Len() int {
	return len(t.actions)
}

// Commit sends all actions. Saved entities are updated in place with the
// id, version and fields returned by the service. Transactions are never
// retried.
func (t *Transaction) Commit(ctx context.Context) (*TransactionResponse, error) {
	for i := range t.actions {
		a := &t.actions[i]
		if a.ID == "" {
			return nil, fmt.Errorf("transaction: %s %s without id", a.Action, a.Type)
		}
		if a.entity == nil {
			continue
		}
		fields, err := json.Marshal(a.entity)
		if err != nil {
			return nil, fmt.Errorf("transaction: encode %s: %w", a.Type, err)
		}
		a.Fields = fields
	}

	var resp TransactionResponse
	if err := t.client.postJSON(ctx, opTransaction, "/transaction", transactionRequest{Actions: t.actions}, &resp); err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}

	for _, a := range t.actions {
		if a.entity == nil {
			continue
		}
		w, ok := resp.Saved[a.ID]
		if !ok {
			continue
		}
		if err := decodeInto(w, a.entity); err != nil {
			return nil, fmt.Errorf("transaction: %w", err)
		}
	}

	t.client.logger.Debug().
		Int("actions", len(t.actions)).
		Int("saved", len(resp.Saved)).
		Msg("Transaction committed")

	return &resp, nil
}

// Saved returns the object saved under id (the id it was sent with) as a
// freshly decoded T.
func Saved[T any, P EntityPtr[T]](resp *TransactionResponse, id string) (P, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSaved, id)
	}
	w, ok := resp.Saved[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSaved, id)
	}
	return decodeAs[T, P](w)
}
