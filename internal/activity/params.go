package activity

import (
	"strconv"
	"strings"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/hyperengineering/pulse/internal/validation"
)

// Params holds the raw feed query parameters as received from a caller.
type Params struct {
	Limit        string
	Cursor       string
	CursorID     string
	Action       string
	ResourceType string
	UserID       string
	FromDate     string
	ToDate       string
}

// ParseRequest validates raw parameters into a Request. Limits above max are
// clamped; limits below 1 are rejected. All field problems are reported
// together.
func (s *Service) ParseRequest(p Params, dates *DateParser, now time.Time) (Request, []validation.ValidationError) {
	var (
		c   validation.Collector
		req = Request{Limit: s.defaultLimit}
	)

	if v := strings.TrimSpace(p.Limit); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			c.Add(&validation.ValidationError{Field: "limit", Message: "must be an integer"})
		case n < 1:
			c.Add(validation.ValidateMinInt("limit", n, 1))
		case n > s.maxLimit:
			req.Limit = s.maxLimit
		default:
			req.Limit = n
		}
	}

	cursor := strings.TrimSpace(p.Cursor)
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			c.Add(&validation.ValidationError{Field: "cursor", Message: "must be an RFC 3339 timestamp"})
		} else {
			req.Cursor = &types.AuditCursor{CreatedAt: t}
		}
	}
	if v := strings.TrimSpace(p.CursorID); v != "" {
		if cursor == "" {
			c.Add(&validation.ValidationError{Field: "cursor_id", Message: "requires cursor"})
		} else if err := validation.ValidateIdentifier("cursor_id", v); err != nil {
			c.Add(err)
		} else if req.Cursor != nil {
			req.Cursor.ID = v
		}
	}

	if p.Action != "" {
		c.Add(validation.ValidateIdentifier("action", p.Action))
		req.Action = p.Action
	}
	if p.ResourceType != "" {
		c.Add(validation.ValidateIdentifier("resource_type", p.ResourceType))
		req.ResourceType = p.ResourceType
	}
	if p.UserID != "" {
		c.Add(validation.ValidateUUID("user_id", p.UserID))
		req.UserID = p.UserID
	}

	if v := strings.TrimSpace(p.FromDate); v != "" {
		t, err := dates.Parse(v, now, false)
		if err != nil {
			c.Add(&validation.ValidationError{Field: "from_date", Message: err.Error()})
		} else {
			req.From = &t
		}
	}
	if v := strings.TrimSpace(p.ToDate); v != "" {
		t, err := dates.Parse(v, now, true)
		if err != nil {
			c.Add(&validation.ValidationError{Field: "to_date", Message: err.Error()})
		} else {
			req.To = &t
		}
	}
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		c.Add(&validation.ValidationError{Field: "from_date", Message: "must not be after to_date"})
	}

	return req, c.Errors()
}
