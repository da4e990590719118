package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/diegopettorossi/pack-data-challenge/pkg/dimension"
	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
)

const mentorsSource = "mentors"

// LoadMentors reads and parses a mentor attribute export.
func (l *Loader) LoadMentors(path string) ([]dimension.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mentors file: %w", err)
	}
	return l.ParseMentors(data)
}

// ParseMentors decodes CSV with a mentor_id,tier,hourly_rate header. Columns
// may appear in any order; extra columns are ignored. Rows keep file order.
func (l *Loader) ParseMentors(data []byte) ([]dimension.Snapshot, error) {
	t, err := openCSV(mentorsSource, data, "mentor_id", "tier", "hourly_rate")
	if err != nil {
		return nil, err
	}

	var out []dimension.Snapshot
	for {
		row, record, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		s := dimension.Snapshot{
			MentorID: t.get(row, "mentor_id"),
			Tier:     titleCase(t.get(row, "tier")),
		}
		rate := t.get(row, "hourly_rate")
		if v, err := strconv.ParseFloat(rate, 64); err == nil && v >= 0 {
			s.HourlyRate = v
		} else if rate != "" {
			l.warn(mentorsSource, fmt.Sprintf("%s: hourly_rate %q is not a valid rate, using 0", record, rate))
		}

		if err := l.validate.Struct(&s); err != nil {
			return nil, integrityFromValidation(mentorsSource, record, err)
		}
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil, perrors.Integrity(mentorsSource, "", "", "no data rows")
	}
	return out, nil
}

// titleCase collapses runs of whitespace and title-cases every word
// ("  silver  plus" becomes "Silver Plus"). A Caser is not safe for
// concurrent use, so one is built per call.
func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(s), " "))
}
