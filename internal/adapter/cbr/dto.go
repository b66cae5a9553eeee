package cbr

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const sheetDateLayout = "02.01.2006"

type ValCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Name    string   `xml:"name,attr"`
	Valutes []Valute `xml:"Valute"`
}

// SheetDate parses the publication date of the sheet.
func (v ValCurs) SheetDate() (time.Time, error) {
	return time.Parse(sheetDateLayout, v.Date)
}

type Valute struct {
	ID        string `xml:"ID,attr"`
	NumCode   string `xml:"NumCode"`
	CharCode  string `xml:"CharCode"`
	Nominal   int    `xml:"Nominal"`
	Name      string `xml:"Name"`
	Value     string `xml:"Value"`
	VunitRate string `xml:"VunitRate"`
}

// GetValue parses the quoted price of Nominal units in roubles.
func (v Valute) GetValue() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(v.Value), ",", "."))
}

// UnitValue is the price of a single unit.
func (v Valute) UnitValue() (decimal.Decimal, error) {
	value, err := v.GetValue()
	if err != nil {
		return decimal.Zero, err
	}
	if v.Nominal > 1 {
		value = value.Div(decimal.NewFromInt(int64(v.Nominal)))
	}
	return value, nil
}
