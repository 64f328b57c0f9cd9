package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sheetValues() [][]interface{} {
	return [][]interface{}{
		{"timestamp", "first_name", "last_name", "dob", "phone", "street", "city", "state", "zip_code",
			"email", "contact_preference", "is_cell_phone", "times_of_day", "days_of_week", "notes",
			"age", "max_distance", "confirmed"},
		{"2/14/2021 9:31", "Ada ", " Lovelace", "12/10/15", "(215) 555-1234", "12 Analytical Way",
			"Norristown", "PA", "19401", "ada@example.com", "email", "Yes", "10AM-1PM", "Tuesday, Saturday",
			"", "105", "25 miles", "Yes"},
		{"2/14/2021 9:40", "Bob", "Byrne", "03/02/1950", "610.555.0000", "9 Oak St",
			"Allentown", "PA", "18102", "bob@example.com", "phone", "No", "any", "any",
			"", "71", "10 miles", "No"},
		{"2/14/2021 9:55", "Mal", "Formed", "not-a-date", "610-555-1111", "1 Elm St",
			"Reading", "PA", "19601", "mal@example.com", "email", "Yes", "any", "any",
			"", "80", "15 miles", "Yes"},
	}
}

func TestParseRows(t *testing.T) {
	signups := ParseRows(sheetValues(), nil)
	// Bob is unconfirmed and Mal's birth date is unparseable.
	require.Len(t, signups, 1)

	p := signups[0].Patient
	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, "Lovelace", p.LastName)
	assert.Equal(t, "12101915", p.DOB)
	assert.Equal(t, "2155551234", p.Phone)
	assert.Equal(t, "19401", p.Zip)
	assert.Equal(t, []int{10, 11, 12}, p.HoursOfDay)
	assert.Equal(t, []int{int(time.Tuesday), int(time.Saturday)}, p.DaysOfWeek)
	assert.Equal(t, 25, signups[0].MaxMiles)
	assert.False(t, p.Success)
}

func TestParseRowsEmptySheet(t *testing.T) {
	assert.Nil(t, ParseRows(nil, nil))
	assert.Nil(t, ParseRows([][]interface{}{{"first_name"}}, nil))
}

func TestParseRowsShortRow(t *testing.T) {
	values := [][]interface{}{
		{"first_name", "dob", "confirmed"},
		{"Ada"},
	}
	assert.Empty(t, ParseRows(values, nil))
}
