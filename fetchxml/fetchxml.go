// Package fetchxml models the remote store's XML query dialect and lowers
// AST fragments into it. Anything the dialect cannot express is reported as
// not transpilable so the planner can route it to client-side evaluation.
package fetchxml

import (
	"encoding/xml"
	"strconv"
)

// Fetch is the root query element, scoped to one primary entity
type Fetch struct {
	XMLName      xml.Name `xml:"fetch"`
	Top          string   `xml:"top,attr,omitempty"`
	Aggregate    string   `xml:"aggregate,attr,omitempty"`
	Page         string   `xml:"page,attr,omitempty"`
	Count        string   `xml:"count,attr,omitempty"`
	PagingCookie string   `xml:"paging-cookie,attr,omitempty"`
	ReturnTotal  string   `xml:"returntotalrecordcount,attr,omitempty"`
	Entity       Entity   `xml:"entity"`
}

// Entity selects the primary entity and its attributes, filter and sorts
type Entity struct {
	Name          string         `xml:"name,attr"`
	AllAttributes *AllAttributes `xml:"all-attributes"`
	Attributes    []Attribute    `xml:"attribute"`
	Filter        *Filter        `xml:"filter"`
	Orders        []Order        `xml:"order"`
}

// AllAttributes marks the entity to return every attribute
type AllAttributes struct{}

// Attribute selects one attribute, optionally aggregated or grouped
type Attribute struct {
	Name      string `xml:"name,attr"`
	Alias     string `xml:"alias,attr,omitempty"`
	Aggregate string `xml:"aggregate,attr,omitempty"`
	GroupBy   string `xml:"groupby,attr,omitempty"`
}

// Filter is an and/or group of conditions and nested filters, mirroring the
// logical structure of the source predicate
type Filter struct {
	Type       string      `xml:"type,attr"`
	Conditions []Condition `xml:"condition"`
	Filters    []*Filter   `xml:"filter"`
}

// Condition is one leaf predicate
type Condition struct {
	Attribute string   `xml:"attribute,attr"`
	Operator  string   `xml:"operator,attr"`
	Value     string   `xml:"value,attr,omitempty"`
	Values    []string `xml:"value"`
}

// Order is one sort key
type Order struct {
	Attribute  string `xml:"attribute,attr"`
	Descending string `xml:"descending,attr,omitempty"`
}

// SetPage applies paging state for the next remote fetch
func (f *Fetch) SetPage(page int, pageSize int, cookie string) {
	f.Page = strconv.Itoa(page)

	if pageSize > 0 {
		f.Count = strconv.Itoa(pageSize)
	}

	f.PagingCookie = cookie
}

// Marshal renders the document. The output is always well-formed, no matter
// how much of the original predicate was left to client-side evaluation.
func (f *Fetch) Marshal() (string, error) {
	out, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", err
	}

	return string(out), nil
}
