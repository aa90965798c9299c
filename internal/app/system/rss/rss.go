// Package rss renders RSS 2.0 documents.
package rss

import (
	"bytes"
	"encoding/xml"
	"time"
)

// Generator is written to the channel's generator element.
const Generator = "ProjectHub"

// Feed describes a channel.
type Feed struct {
	Title       string
	Description string
	FeedURL     string
	SiteURL     string
	PubDate     time.Time
	Items       []Item
}

// Item is one channel entry. Custom elements are written after the
// standard ones, in order.
type Item struct {
	Title       string
	Description string
	GUID        string
	Categories  []string
	Date        *time.Time
	Custom      []Element
}

// Element is a custom item child element.
type Element struct {
	Name  string
	Value string
}

type cdata struct {
	Text string `xml:",cdata"`
}

type xmlRSS struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel xmlChannel `xml:"channel"`
}

type xmlChannel struct {
	Title         cdata     `xml:"title"`
	Description   cdata     `xml:"description"`
	Link          string    `xml:"link"`
	Generator     string    `xml:"generator"`
	LastBuildDate string    `xml:"lastBuildDate"`
	AtomLink      atomLink  `xml:"atom:link"`
	PubDate       string    `xml:"pubDate"`
	Items         []xmlItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type xmlItem struct {
	Title       cdata   `xml:"title"`
	Description cdata   `xml:"description"`
	GUID        xmlGUID `xml:"guid"`
	Categories  []cdata `xml:"category"`
	PubDate     string  `xml:"pubDate,omitempty"`
	Custom      []xmlElement
}

type xmlGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type xmlElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Render encodes f as an RSS 2.0 document including the XML header.
func Render(f Feed) ([]byte, error) {
	now := time.Now().UTC()
	pub := f.PubDate
	if pub.IsZero() {
		pub = now
	}

	doc := xmlRSS{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: xmlChannel{
			Title:         cdata{f.Title},
			Description:   cdata{f.Description},
			Link:          f.SiteURL,
			Generator:     Generator,
			LastBuildDate: now.Format(time.RFC1123Z),
			AtomLink:      atomLink{Href: f.FeedURL, Rel: "self", Type: "application/rss+xml"},
			PubDate:       pub.UTC().Format(time.RFC1123Z),
			Items:         make([]xmlItem, 0, len(f.Items)),
		},
	}

	for _, it := range f.Items {
		xi := xmlItem{
			Title:       cdata{it.Title},
			Description: cdata{it.Description},
			GUID:        xmlGUID{IsPermaLink: "false", Value: it.GUID},
		}
		for _, c := range it.Categories {
			xi.Categories = append(xi.Categories, cdata{c})
		}
		if it.Date != nil {
			xi.PubDate = it.Date.UTC().Format(time.RFC1123Z)
		}
		for _, el := range it.Custom {
			xi.Custom = append(xi.Custom, xmlElement{XMLName: xml.Name{Local: el.Name}, Value: el.Value})
		}
		doc.Channel.Items = append(doc.Channel.Items, xi)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
