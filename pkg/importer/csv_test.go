package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/roster"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Name", roster.FieldFullName},
		{"  Full Name ", roster.FieldFullName},
		{"\ufeffE-mail", roster.FieldEmail},
		{"Mobile", roster.FieldPhone},
		{"Chapter Name", roster.FieldChapterName},
		{"Membership Status", roster.FieldMemberStatus},
		{"Business Category", roster.FieldBusinessCategory},
		{"Company", "Company"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.in))
		})
	}
}

func TestParseCSV(t *testing.T) {
	input := "Name,Email,Mobile,Chapter\n" +
		"Ana Lopez, ana@example.com ,555 0101,North\n" +
		",,,\n" +
		"Bo Chen,,555-0102\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Ana Lopez", rows[0].Fields[roster.FieldFullName])
	assert.Equal(t, "ana@example.com", rows[0].Fields[roster.FieldEmail])
	assert.Equal(t, "North", rows[0].Fields[roster.FieldChapterName])

	assert.True(t, rows[1].Blank())
	assert.Equal(t, 3, rows[1].Line)

	assert.Equal(t, 4, rows[2].Line)
	assert.Equal(t, "555-0102", rows[2].Fields[roster.FieldPhone])
	assert.Equal(t, "", rows[2].Fields[roster.FieldChapterName])
}

func TestParseCSVCountsEmptyLines(t *testing.T) {
	input := "Name,Email\n" +
		"Ana,ana@example.com\n" +
		"\n" +
		"\n" +
		"\"Bo\nChen\",bo@example.com\n" +
		"Cy,cy@example.com\n" +
		"\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 5)

	lines := make([]int, len(rows))
	for i, r := range rows {
		lines[i] = r.Line
	}
	assert.Equal(t, []int{2, 3, 4, 5, 7}, lines)
	assert.True(t, rows[1].Blank())
	assert.True(t, rows[2].Blank())
	assert.Equal(t, "Bo\nChen", rows[3].Fields[roster.FieldFullName])
	assert.Equal(t, "Cy", rows[4].Fields[roster.FieldFullName])
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	rows, err := ParseCSV(strings.NewReader("Name,Email\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteTemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	buf.WriteString("Ana,ana@example.com,1,North,Active,Tech\n")
	rows, err := ParseCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]string{
		roster.FieldFullName:         "Ana",
		roster.FieldEmail:            "ana@example.com",
		roster.FieldPhone:            "1",
		roster.FieldChapterName:      "North",
		roster.FieldMemberStatus:     "Active",
		roster.FieldBusinessCategory: "Tech",
	}, rows[0].Fields)
}
