package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/server/envelope"
	"github.com/dmitrijs2005/ledgerd/internal/server/services"
)

func (r *Registry) registerRecordTools() {
	r.Register("add_record", r.addRecord)
	r.Register("bulk_add_records", r.bulkAddRecords)
	r.Register("update_record", r.updateRecord)
	r.Register("bulk_update_records", r.bulkUpdateRecords)
	r.Register("delete_record", r.deleteRecord)
	r.Register("bulk_delete_records", r.bulkDeleteRecords)
}

func bulkEnvelope(verb string, res *services.BulkResult) envelope.Envelope {
	msg := fmt.Sprintf("%s %d records, %d failed", verb, res.SuccessCount, res.FailedCount)
	return envelope.Either(res.SuccessCount > 0, msg, bulkFields(res))
}

func (r *Registry) addRecord(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Token string `json:"token"`
		recordArgs
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	var id string
	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		id, err = r.svc.Records.Add(ctx, p, a.patch())
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Record added successfully", envelope.Fields{"record_id": id}), nil
}

func (r *Registry) bulkAddRecords(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Token   string            `json:"token"`
		Records []json.RawMessage `json:"records"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	items := recordItems(a.Records)

	var res *services.BulkResult
	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		res, err = r.svc.Records.BulkAdd(ctx, p, items)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return bulkEnvelope("Added", res), nil
}

func (r *Registry) updateRecord(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Token string `json:"token"`
		recordArgs
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		if err := required("record_id", a.RecordID); err != nil {
			return err
		}
		return r.svc.Records.Update(ctx, p, a.RecordID, a.patch())
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Record updated successfully", envelope.Fields{"record_id": a.RecordID}), nil
}

func (r *Registry) bulkUpdateRecords(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Token   string            `json:"token"`
		Records []json.RawMessage `json:"records"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	items := recordItems(a.Records)

	var res *services.BulkResult
	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		res, err = r.svc.Records.BulkUpdate(ctx, p, items)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return bulkEnvelope("Updated", res), nil
}

func (r *Registry) deleteRecord(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Token    string `json:"token"`
		RecordID string `json:"record_id"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		if err := required("record_id", a.RecordID); err != nil {
			return err
		}
		return r.svc.Records.Delete(ctx, p, a.RecordID)
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Record deleted successfully", envelope.Fields{"record_id": a.RecordID}), nil
}

func (r *Registry) bulkDeleteRecords(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Token     string            `json:"token"`
		RecordIDs []json.RawMessage `json:"record_ids"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	items := make([]services.BulkItem, len(a.RecordIDs))
	for i, raw := range a.RecordIDs {
		if err := json.Unmarshal(raw, &items[i].ID); err != nil {
			items[i].Err = common.Validationf("invalid record_id")
		}
	}

	var res *services.BulkResult
	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		res, err = r.svc.Records.BulkDelete(ctx, p, items)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return bulkEnvelope("Deleted", res), nil
}

// recordItems decodes every bulk entry on its own so that one malformed
// entry fails alone.
func recordItems(raws []json.RawMessage) []services.BulkItem {
	items := make([]services.BulkItem, len(raws))
	for i, raw := range raws {
		var ra recordArgs
		if err := json.Unmarshal(raw, &ra); err != nil {
			items[i].Err = common.Validationf("invalid record: %s", describe(err))
			continue
		}
		items[i] = services.BulkItem{ID: ra.RecordID, Patch: ra.patch()}
	}
	return items
}
