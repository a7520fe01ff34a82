package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"scooter/internal/domain"
)

// Positions of rental columns in the backend's row encoding.
const (
	rentalColID = iota
	rentalColUserID
	rentalColScooterID
	rentalColActive
	rentalColStartTime
	rentalColEndTime
	rentalColPrice
	rentalColumns
)

type rentalObject struct {
	RentalID  any  `json:"rental_id"`
	UserID    any  `json:"user_id"`
	ScooterID any  `json:"scooter_id"`
	Active    bool `json:"active"`
	StartTime any  `json:"start_time"`
	EndTime   any  `json:"end_time"`
	Price     any  `json:"price"`
}

type userObject struct {
	ID      any    `json:"id"`
	Name    string `json:"name"`
	Balance any    `json:"balance"`
	Funds   any    `json:"funds"`
}

type scooterObject struct {
	UUID      any `json:"uuid"`
	Latitude  any `json:"latitude"`
	Longitude any `json:"longtitude"`
	Status    any `json:"status"`
}

type pollObject struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// decodeRental accepts the positional row form or the named object form.
// A JSON null decodes to nil without error.
func decodeRental(raw json.RawMessage) (*domain.Rental, error) {
	value, err := decodeAny(raw)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		if len(v) < rentalColumns {
			return nil, fmt.Errorf("%w: rental row has %d columns", ErrUnexpectedPayload, len(v))
		}
		active, _ := v[rentalColActive].(bool)
		return &domain.Rental{
			ID:        idString(v[rentalColID]),
			UserID:    idString(v[rentalColUserID]),
			ScooterID: idString(v[rentalColScooterID]),
			Active:    active,
			StartTime: timestampString(v[rentalColStartTime]),
			EndTime:   timestampString(v[rentalColEndTime]),
			Price:     number(v[rentalColPrice]),
		}, nil
	case map[string]any:
		var obj rentalObject
		if err := remarshal(v, &obj); err != nil {
			return nil, err
		}
		return &domain.Rental{
			ID:        idString(obj.RentalID),
			UserID:    idString(obj.UserID),
			ScooterID: idString(obj.ScooterID),
			Active:    obj.Active,
			StartTime: timestampString(obj.StartTime),
			EndTime:   timestampString(obj.EndTime),
			Price:     number(obj.Price),
		}, nil
	default:
		return nil, fmt.Errorf("%w: rental is %T", ErrUnexpectedPayload, value)
	}
}

// decodePollResult accepts the positional [ok, reason] pair or {ok, reason}.
func decodePollResult(raw json.RawMessage) (domain.PollResult, error) {
	value, err := decodeAny(raw)
	if err != nil {
		return domain.PollResult{}, err
	}

	switch v := value.(type) {
	case []any:
		if len(v) < 1 {
			return domain.PollResult{}, fmt.Errorf("%w: empty poll result", ErrUnexpectedPayload)
		}
		ok, isBool := v[0].(bool)
		if !isBool {
			return domain.PollResult{}, fmt.Errorf("%w: poll flag is %T", ErrUnexpectedPayload, v[0])
		}
		result := domain.PollResult{OK: ok}
		if len(v) > 1 {
			if reason, isString := v[1].(string); isString {
				result.Reason = domain.AbortReason(reason)
			}
		}
		return result, nil
	case map[string]any:
		var obj pollObject
		if err := remarshal(v, &obj); err != nil {
			return domain.PollResult{}, err
		}
		return domain.PollResult{OK: obj.OK, Reason: domain.AbortReason(obj.Reason)}, nil
	default:
		return domain.PollResult{}, fmt.Errorf("%w: poll result is %T", ErrUnexpectedPayload, value)
	}
}

// decodeUser prefers "balance" and falls back to "funds".
func decodeUser(raw json.RawMessage) (*domain.User, error) {
	value, err := decodeAny(raw)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: user is %T", ErrUnexpectedPayload, value)
	}

	var obj userObject
	if err := remarshal(m, &obj); err != nil {
		return nil, err
	}
	balance := obj.Balance
	if balance == nil {
		balance = obj.Funds
	}
	return &domain.User{
		ID:      idString(obj.ID),
		Name:    obj.Name,
		Balance: number(balance),
	}, nil
}

func decodeScooter(raw json.RawMessage) (*domain.Scooter, error) {
	value, err := decodeAny(raw)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: scooter is %T", ErrUnexpectedPayload, value)
	}

	var obj scooterObject
	if err := remarshal(m, &obj); err != nil {
		return nil, err
	}
	return &domain.Scooter{
		ID:        idString(obj.UUID),
		Latitude:  number(obj.Latitude),
		Longitude: number(obj.Longitude),
		Status:    int(number(obj.Status)),
	}, nil
}

func decodeAny(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	return value, nil
}

func remarshal(in map[string]any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	return nil
}

// idString renders numeric or string identifiers without exponent notation.
func idString(v any) string {
	switch id := v.(type) {
	case json.Number:
		return id.String()
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func timestampString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func number(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
