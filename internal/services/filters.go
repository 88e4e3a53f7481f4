package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sms487/archive/internal/model"
	"github.com/sms487/archive/internal/store"
)

// newRecordID is the form key for the rule being created.
const newRecordID = "new"

// FilterService manages the owner's filter rule set.
type FilterService struct {
	store store.Store
}

func NewFilterService(s store.Store) *FilterService {
	return &FilterService{store: s}
}

// List returns the owner's rules newest-first, in export form.
func (s *FilterService) List(ctx context.Context, login string) ([]model.FilterRuleView, error) {
	if login == "" {
		return nil, fmt.Errorf("%w: there is no login", model.ErrValidation)
	}

	rules, err := s.store.Filters().List(ctx, login)
	if err != nil {
		return nil, err
	}

	views := make([]model.FilterRuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, model.FilterRuleView{
			ID:       r.ID.Hex(),
			Op:       r.Op,
			Tel:      r.Tel,
			DeviceID: r.DeviceID,
			Text:     r.Text,
			Action:   r.Action,
		})
	}
	return views, nil
}

// Export is List; the JSON form round-trips through Import with identities
// preserved.
func (s *FilterService) Export(ctx context.Context, login string) ([]model.FilterRuleView, error) {
	return s.List(ctx, login)
}

// Save applies a saved-filters form. Keys are "field:recordID"; recordID
// "new" inserts a rule when any match field is set. A record marked with
// remove=1, or updated to have no match fields at all, is deleted.
func (s *FilterService) Save(ctx context.Context, login string, form map[string]string) error {
	if login == "" {
		return fmt.Errorf("%w: there is no login", model.ErrValidation)
	}

	records := make(map[string]map[string]string)
	order := make([]string, 0)
	for name, value := range form {
		parts := strings.SplitN(name, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("%w: invalid field name: %s", model.ErrValidation, name)
		}
		field, recID := parts[0], parts[1]
		if records[recID] == nil {
			records[recID] = make(map[string]string)
			order = append(order, recID)
		}
		records[recID][field] = value
	}
	sortRecordIDs(order)

	filters := s.store.Filters()

	for _, recID := range order {
		if recID == newRecordID {
			continue
		}

		id, err := primitive.ObjectIDFromHex(recID)
		if err != nil {
			return fmt.Errorf("%w: invalid filter ID: %s", model.ErrValidation, recID)
		}

		rec := records[recID]
		if rec["remove"] == "1" {
			if err := filters.Delete(ctx, login, id); err != nil {
				return err
			}
			continue
		}

		rule, err := ruleFromFields(login, rec)
		if err != nil {
			return err
		}
		if rule == nil {
			// All match fields cleared: an update like this is a delete.
			if err := filters.Delete(ctx, login, id); err != nil {
				return err
			}
			continue
		}

		rule.ID = id
		if err := filters.Update(ctx, rule); err != nil {
			return err
		}
	}

	if rec, ok := records[newRecordID]; ok {
		rule, err := ruleFromFields(login, rec)
		if err != nil {
			return err
		}
		if rule != nil {
			return filters.Insert(ctx, rule)
		}
	}
	return nil
}

// Import upserts a previously exported rule list. Every item must carry a
// valid identity; items with no match fields are skipped.
func (s *FilterService) Import(ctx context.Context, login string, views []model.FilterRuleView) error {
	if login == "" {
		return fmt.Errorf("%w: there is no login", model.ErrValidation)
	}

	type pending struct {
		id   primitive.ObjectID
		view model.FilterRuleView
	}

	// Validate the whole list before writing anything.
	items := make([]pending, 0, len(views))
	for _, v := range views {
		id, err := primitive.ObjectIDFromHex(v.ID)
		if err != nil {
			return fmt.Errorf(`%w: invalid filter ID: %s. Should be in "id" field`, model.ErrValidation, v.ID)
		}
		if !v.HasMatchFields() {
			continue
		}
		if err := validateRuleEnums(v.Op, v.Action); err != nil {
			return err
		}
		items = append(items, pending{id: id, view: v})
	}

	filters := s.store.Filters()
	for _, item := range items {
		rule := &model.FilterRule{
			ID:       item.id,
			Login:    login,
			Op:       strings.TrimSpace(item.view.Op),
			Tel:      strings.TrimSpace(item.view.Tel),
			DeviceID: strings.TrimSpace(item.view.DeviceID),
			Text:     strings.TrimSpace(item.view.Text),
			Action:   strings.TrimSpace(item.view.Action),
		}
		if err := filters.Upsert(ctx, rule); err != nil {
			return err
		}
	}
	return nil
}

// ruleFromFields validates a form record. A nil rule with nil error means
// the record has no match fields left.
func ruleFromFields(login string, rec map[string]string) (*model.FilterRule, error) {
	op := strings.TrimSpace(rec["op"])
	tel := strings.TrimSpace(rec["tel"])
	deviceID := strings.TrimSpace(rec["device_id"])
	text := strings.TrimSpace(rec["text"])
	action := strings.TrimSpace(rec["action"])

	if tel == "" && deviceID == "" && text == "" {
		return nil, nil
	}
	if err := validateRuleEnums(op, action); err != nil {
		return nil, err
	}

	return &model.FilterRule{
		Login:    login,
		Op:       op,
		Tel:      tel,
		DeviceID: deviceID,
		Text:     text,
		Action:   action,
	}, nil
}

// sortRecordIDs keeps form processing deterministic regardless of map
// iteration order.
func sortRecordIDs(ids []string) {
	sort.Strings(ids)
}

func validateRuleEnums(op, action string) error {
	op = strings.TrimSpace(op)
	action = strings.TrimSpace(action)

	if op != model.OpAnd && op != model.OpOr {
		return fmt.Errorf("%w: invalid op: %s", model.ErrValidation, op)
	}
	if action != model.ActionHide && action != model.ActionMark {
		return fmt.Errorf("%w: invalid action: %s", model.ErrValidation, action)
	}
	return nil
}
