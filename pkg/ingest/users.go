package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
)

const usersSource = "users"

// signupLayouts extends the event timestamp layouts with a bare date.
var signupLayouts = append([]string{"2006-01-02"}, timestampLayouts...)

// User is one row of the user export.
type User struct {
	UserID     string     `json:"user_id" validate:"required"`
	CompanyID  string     `json:"company_id"`
	SignupDate *time.Time `json:"signup_date"`
	Status     string     `json:"status"`
}

// UserBatch is the validated content of a user export.
type UserBatch struct {
	// Users holds the first row of every parseable user_id, in file order.
	Users []User
	// Total counts every non-blank data row.
	Total int
	// Duplicates lists repeated user IDs, once each, in order of first repeat.
	Duplicates []string
	// Unparseable lists the row labels dropped for a user_id that is not an integer.
	Unparseable []string
}

// Warnings describes the non-fatal problems of the batch.
func (b UserBatch) Warnings() []string {
	var out []string
	if len(b.Duplicates) > 0 {
		out = append(out, fmt.Sprintf("%d duplicate user_id value(s) ignored: %s",
			len(b.Duplicates), strings.Join(b.Duplicates, ", ")))
	}
	if len(b.Unparseable) > 0 {
		out = append(out, fmt.Sprintf("%d user row(s) with unparseable user_id dropped: %s",
			len(b.Unparseable), strings.Join(b.Unparseable, ", ")))
	}
	return out
}

// LoadUsers reads and parses a user export.
func (l *Loader) LoadUsers(path string) (UserBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UserBatch{}, fmt.Errorf("read users file: %w", err)
	}
	return l.ParseUsers(data)
}

// ParseUsers decodes CSV with at least a user_id column; company_id,
// signup_date and status are read when present. A file without data rows is
// an integrity error. Rows whose user_id is not an integer are dropped, and
// a repeated user_id keeps its first row; both only warn.
func (l *Loader) ParseUsers(data []byte) (UserBatch, error) {
	t, err := openCSV(usersSource, data, "user_id")
	if err != nil {
		return UserBatch{}, err
	}

	var batch UserBatch
	seen := map[string]bool{}
	repeated := map[string]bool{}
	for {
		row, record, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return UserBatch{}, err
		}
		batch.Total++

		id, err := strconv.ParseInt(t.get(row, "user_id"), 10, 64)
		if err != nil {
			batch.Unparseable = append(batch.Unparseable, record)
			continue
		}
		u := User{
			UserID:    strconv.FormatInt(id, 10),
			CompanyID: t.get(row, "company_id"),
			Status:    strings.ToLower(t.get(row, "status")),
		}
		if seen[u.UserID] {
			if !repeated[u.UserID] {
				repeated[u.UserID] = true
				batch.Duplicates = append(batch.Duplicates, u.UserID)
			}
			continue
		}
		seen[u.UserID] = true

		if raw := t.get(row, "signup_date"); raw != "" {
			if ts, err := parseSignup(raw); err == nil {
				u.SignupDate = &ts
			} else {
				l.warn(usersSource, fmt.Sprintf("%s: signup_date %q is not a date, left empty", record, raw))
			}
		}

		if err := l.validate.Struct(&u); err != nil {
			return UserBatch{}, integrityFromValidation(usersSource, record, err)
		}
		batch.Users = append(batch.Users, u)
	}

	if batch.Total == 0 {
		return UserBatch{}, perrors.Integrity(usersSource, "", "", "no data rows")
	}
	for _, w := range batch.Warnings() {
		l.warn(usersSource, w)
	}
	return batch, nil
}

func parseSignup(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range signupLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
