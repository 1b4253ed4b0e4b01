// Package structured reads author-embedded machine-readable metadata
// from a page: JSON-LD blocks and microdata attributes describing a
// course or educational program. Because this data is declared by the
// page author for machine consumption, it outranks every heuristic
// signal in the extraction cascade. Malformed blocks are skipped
// silently so a broken script tag never aborts extraction.
package structured

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/progscout/progscout/internal/patterns"
)

// programTypes are the schema.org types that denote a course or
// program; orgTypes denote the institution offering it.
var (
	programTypes = map[string]bool{
		"Course":                          true,
		"EducationalOccupationalProgram": true,
	}
	orgTypes = map[string]bool{
		"CollegeOrUniversity":     true,
		"EducationalOrganization": true,
		"University":              true,
	}
)

// Read returns the first well-formed, non-empty structured value for
// the field, scanning JSON-LD blocks first and microdata second.
// Returns "" when the page declares nothing usable.
func Read(doc *goquery.Document, field patterns.Field) string {
	if value := readJSONLD(doc, field); value != "" {
		return value
	}
	return readMicrodata(doc, field)
}

func readJSONLD(doc *goquery.Document, field patterns.Field) string {
	var result string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s.Text()), &decoded); err != nil {
			return true // skip malformed block
		}
		for _, node := range collectNodes(decoded) {
			if value := fieldFromNode(node, field); value != "" {
				result = value
				return false
			}
		}
		return true
	})
	return result
}

// collectNodes flattens a decoded JSON-LD document into its candidate
// nodes, descending into top-level arrays and @graph containers.
func collectNodes(decoded interface{}) []map[string]interface{} {
	var nodes []map[string]interface{}
	switch v := decoded.(type) {
	case map[string]interface{}:
		nodes = append(nodes, v)
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				if node, ok := item.(map[string]interface{}); ok {
					nodes = append(nodes, node)
				}
			}
		}
	case []interface{}:
		for _, item := range v {
			nodes = append(nodes, collectNodes(item)...)
		}
	}
	return nodes
}

func fieldFromNode(node map[string]interface{}, field patterns.Field) string {
	typ := nodeType(node)
	switch field {
	case patterns.FieldTitle:
		if programTypes[typ] {
			return stringProp(node, "name")
		}
	case patterns.FieldInstitution:
		if programTypes[typ] {
			if name := nameOf(node["provider"]); name != "" {
				return name
			}
		}
		if orgTypes[typ] {
			return stringProp(node, "name")
		}
	case patterns.FieldLocation:
		if programTypes[typ] || orgTypes[typ] {
			return locationOf(node)
		}
	case patterns.FieldDescription:
		if programTypes[typ] {
			return stringProp(node, "description")
		}
	}
	return ""
}

func nodeType(node map[string]interface{}) string {
	switch t := node["@type"].(type) {
	case string:
		return t
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if programTypes[s] || orgTypes[s] {
					return s
				}
			}
		}
	}
	return ""
}

func stringProp(node map[string]interface{}, key string) string {
	s, _ := node[key].(string)
	return strings.TrimSpace(s)
}

// nameOf resolves a schema.org value that may be a bare string or an
// object with a name property.
func nameOf(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		return stringProp(v, "name")
	}
	return ""
}

// locationOf reads a location's name, falling back to its postal
// address (locality, region).
func locationOf(node map[string]interface{}) string {
	loc, ok := node["location"].(map[string]interface{})
	if !ok {
		return ""
	}
	if name := stringProp(loc, "name"); name != "" {
		return name
	}
	if addr, ok := loc["address"].(map[string]interface{}); ok {
		locality := stringProp(addr, "addressLocality")
		region := stringProp(addr, "addressRegion")
		switch {
		case locality != "" && region != "":
			return locality + ", " + region
		case locality != "":
			return locality
		case region != "":
			return region
		}
	}
	return ""
}

// microdata scoping: any element declaring a program or organization
// itemtype, then itemprop lookups inside it.
var microdataSelector = `[itemscope][itemtype*="Course"], [itemscope][itemtype*="EducationalOccupationalProgram"], [itemscope][itemtype*="CollegeOrUniversity"], [itemscope][itemtype*="EducationalOrganization"]`

func readMicrodata(doc *goquery.Document, field patterns.Field) string {
	var result string
	doc.Find(microdataSelector).EachWithBreak(func(_ int, scope *goquery.Selection) bool {
		itemtype, _ := scope.Attr("itemtype")
		isOrg := strings.Contains(itemtype, "CollegeOrUniversity") || strings.Contains(itemtype, "EducationalOrganization")

		var value string
		switch field {
		case patterns.FieldTitle:
			if !isOrg {
				value = itemprop(scope, "name")
			}
		case patterns.FieldInstitution:
			if isOrg {
				value = itemprop(scope, "name")
			} else {
				provider := scope.Find(`[itemprop="provider"]`).First()
				if provider.Length() > 0 {
					value = itemprop(provider, "name")
				}
			}
		case patterns.FieldLocation:
			value = itemprop(scope, "location")
			if value == "" {
				value = itemprop(scope, "addressLocality")
			}
		case patterns.FieldDescription:
			if !isOrg {
				value = itemprop(scope, "description")
			}
		}

		if value != "" {
			result = value
			return false
		}
		return true
	})
	return result
}

// itemprop reads the value of an itemprop within a scope: the content
// attribute for meta elements, text content otherwise. A scope that is
// itself the property (provider with a direct name child) also works
// because Find descends from the scope node.
func itemprop(scope *goquery.Selection, prop string) string {
	el := scope.Find(`[itemprop="` + prop + `"]`).First()
	if el.Length() == 0 {
		return ""
	}
	if content, ok := el.Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(el.Text())
}
