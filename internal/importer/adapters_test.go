package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"releve/internal/core"
)

func TestEuropeanAmount(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{name: "decimal comma", input: "-101,00", want: -101, wantOK: true},
		{name: "already dotted", input: "1057.24", want: 1057.24, wantOK: true},
		{name: "space thousands", input: "2 500,00", want: 2500, wantOK: true},
		{name: "no-break space thousands", input: "1 057,24", want: 1057.24, wantOK: true},
		{name: "narrow no-break space thousands", input: "1 057,24", want: 1057.24, wantOK: true},
		{name: "spaces removed anywhere", input: "1 0,00", want: 10, wantOK: true},
		{name: "empty string", input: "", wantOK: false},
		{name: "text", input: "abc", wantOK: false},
		{name: "two separators", input: "1.057,24", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := EuropeanAmount(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, core.Euro(tc.want), got)
			}
		})
	}
}

func TestBoursobankLayout(t *testing.T) {
	l := Boursobank()

	require.NoError(t, l.Validate())
	assert.Equal(t, ';', l.Delimiter)
	assert.Equal(t, []int{4, 3}, l.Category)
	assert.Equal(t, 10, l.AccountBalance)

	d, ok := l.ParseDate("2025-08-26")
	require.True(t, ok)
	assert.Equal(t, "26 août 2025", d.String())
}

func TestLookupLayout(t *testing.T) {
	l, err := LookupLayout(" BoursoBank ")
	require.NoError(t, err)
	assert.Equal(t, LayoutBoursobank, l.Name)

	_, err = LookupLayout("unknown-bank")
	assert.ErrorIs(t, err, ErrUnknownLayout)
	assert.ErrorContains(t, err, "boursobank")

	assert.Equal(t, []string{LayoutBoursobank}, LayoutNames())
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Layout)
		wantErr string
	}{
		{"no delimiter", func(l *Layout) { l.Delimiter = 0 }, "delimiter"},
		{"quote delimiter", func(l *Layout) { l.Delimiter = '"' }, "delimiter"},
		{"no date parser", func(l *Layout) { l.ParseDate = nil }, "date parser"},
		{"no amount parser", func(l *Layout) { l.ParseAmount = nil }, "amount parser"},
		{"negative column", func(l *Layout) { l.Label = -1 }, "label"},
		{"negative category", func(l *Layout) { l.Category = []int{1, -2} }, "category"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := Boursobank()
			tc.mutate(&l)
			err := l.Validate()
			assert.ErrorIs(t, err, ErrInvalidLayout)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadLayout(t *testing.T) {
	l, err := LoadLayout([]byte(loadFixture(t, "mybank.json")))
	require.NoError(t, err)
	assert.Equal(t, "mybank", l.Name)
	assert.Equal(t, ',', l.Delimiter)

	input := strings.Join([]string{
		"op,val,label,who,amount,comment,account,name,balance,cat,sub",
		`2024/02/29,2024/03/01,"Loyer, mars",Agence,-750.5,,7,Courant,1249.5,Logement,Loyer`,
		`2024/02/30,2024/03/01,Invalid,Agence,-1,,7,Courant,1,Logement,Loyer`,
		`2024/03/02,2024/03/02,Comma,Agence,"-1,5",,7,Courant,1,Logement,Loyer`,
	}, "\n")

	got := FromCSV(strings.NewReader(input), l)
	require.Len(t, got, 1)
	assert.Equal(t, "Loyer, mars", got[0].Label())
	assert.Equal(t, core.Euro(-750.5), got[0].Amount())
	assert.Equal(t, []string{"Logement", "Loyer"}, got[0].Category())
	assert.Equal(t, "Agence", got[0].Counterparty())
}

func TestLoadLayout_DecimalCommaAndTab(t *testing.T) {
	l, err := LoadLayout([]byte(`{
		"name": "tabbed",
		"delimiter": "\\t",
		"decimal_comma": true,
		"columns": {"date_op": 0, "date_val": 0, "label": 1, "counterparty": 1, "amount": 2,
			"comment": 1, "account_number": 3, "account_label": 1, "account_balance": 2}
	}`))
	require.NoError(t, err)
	assert.Equal(t, '\t', l.Delimiter)

	got := FromCSV(strings.NewReader("2025-03-01\tCafé\t-3,20\t9\n"), l)
	require.Len(t, got, 1)
	assert.Equal(t, core.Euro(-3.2), got[0].Amount())
	assert.Empty(t, got[0].Category())
}

func TestLoadLayout_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"missing column", `{"name":"x","columns":{"date_op":0}}`},
		{"long delimiter", `{"name":"x","delimiter":";;","columns":{}}`},
		{"negative column", `{"name":"x","columns":{"date_op":-1,"date_val":0,"label":0,"counterparty":0,"amount":0,"comment":0,"account_number":0,"account_label":0,"account_balance":0}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadLayout([]byte(tc.json))
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}
