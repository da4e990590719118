package ingest_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegopettorossi/pack-data-challenge/pkg/dimension"
	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
	"github.com/diegopettorossi/pack-data-challenge/pkg/ingest"
)

func TestParseMentors(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	data := []byte("mentor_id,tier,hourly_rate\n" +
		"M01, gold ,80\n" +
		"M02,SILVER,55.5\n" +
		"\n" +
		"M03,bronze,n/a\n" +
		"M04,platinum elite,\n")

	got, err := ingest.NewLoader(logger).ParseMentors(data)
	require.NoError(t, err)
	assert.Equal(t, []dimension.Snapshot{
		{MentorID: "M01", Tier: "Gold", HourlyRate: 80},
		{MentorID: "M02", Tier: "Silver", HourlyRate: 55.5},
		{MentorID: "M03", Tier: "Bronze", HourlyRate: 0},
		{MentorID: "M04", Tier: "Platinum Elite", HourlyRate: 0},
	}, got)
	assert.Contains(t, logs.String(), `hourly_rate \"n/a\"`)
}

func TestParseMentors_TitleCasesUnicodeTiers(t *testing.T) {
	data := []byte("mentor_id,tier,hourly_rate\nM01,ÉLITE   gold,80\n")

	got, err := ingest.NewLoader(nil).ParseMentors(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Élite Gold", got[0].Tier)
}

func TestParseMentors_ColumnOrderAndBOM(t *testing.T) {
	data := []byte("\ufeffTier,Mentor_ID,hourly_rate,region\nGold,M01,90,EU\n")

	got, err := ingest.NewLoader(nil).ParseMentors(data)
	require.NoError(t, err)
	assert.Equal(t, []dimension.Snapshot{{MentorID: "M01", Tier: "Gold", HourlyRate: 90}}, got)
}

func TestParseMentors_KeepsRepeatsInOrder(t *testing.T) {
	data := []byte("mentor_id,tier,hourly_rate\nM01,Gold,80\nM01,Silver,60\n")

	got, err := ingest.NewLoader(nil).ParseMentors(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Silver", dimension.Latest(got)[0].Tier)
}

func TestParseMentors_IntegrityErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{"empty file", "", ""},
		{"missing column", "mentor_id,tier\nM01,Gold\n", "hourly_rate"},
		{"header only", "mentor_id,tier,hourly_rate\n", ""},
		{"empty tier", "mentor_id,tier,hourly_rate\nM01,  ,80\n", "tier"},
		{"empty mentor", "mentor_id,tier,hourly_rate\n,Gold,80\n", "mentor_id"},
		{"unterminated quote", "mentor_id,tier,hourly_rate\n\"M01,Gold,80\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.NewLoader(nil).ParseMentors([]byte(tt.data))
			assert.ErrorIs(t, err, perrors.ErrDataIntegrity)
			integrity := requireIntegrity(t, err, tt.field)
			assert.Equal(t, "mentors", integrity.Source)
		})
	}
}

func TestParseMentors_InvalidUTF8(t *testing.T) {
	_, err := ingest.NewLoader(nil).ParseMentors([]byte{'m', 0xff, '\n'})
	assert.ErrorIs(t, err, perrors.ErrDataIntegrity)
}
