// SPDX-License-Identifier: MIT

package epg

import "encoding/xml"

// TV is the root element of an XMLTV document.
type TV struct {
	XMLName   xml.Name    `xml:"tv"`
	Generator string      `xml:"generator-info-name,attr,omitempty"`
	Channels  []Channel   `xml:"channel"`
	Programs  []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
}

type Programme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr"`
	Channel  string `xml:"channel,attr"`
	Title    Text   `xml:"title"`
	SubTitle *Text  `xml:"sub-title,omitempty"`
	Desc     *Text  `xml:"desc,omitempty"`
	Category []Text `xml:"category,omitempty"`
}

// Text is a localized character data element.
type Text struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// ChannelMap is the EPGImport channel file mapping XMLTV ids to service
// references.
type ChannelMap struct {
	XMLName  xml.Name       `xml:"channels"`
	Channels []ChannelEntry `xml:"channel"`
}

type ChannelEntry struct {
	ID         string `xml:"id,attr"`
	ServiceRef string `xml:",chardata"`
}

// Sources is the EPGImport source catalogue.
type Sources struct {
	XMLName xml.Name  `xml:"sources"`
	Cat     SourceCat `xml:"sourcecat"`
}

type SourceCat struct {
	Name    string   `xml:"sourcecatname,attr"`
	Sources []Source `xml:"source"`
}

type Source struct {
	Type        string `xml:"type,attr"`
	Channels    string `xml:"channels,attr"`
	Description string `xml:"description"`
	URL         string `xml:"url"`
}
