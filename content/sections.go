package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/foomo/contentsite/service/vo"
)

var ErrUnknownSection = errors.New("unknown content section")

type Key string

const (
	KeyHero            Key = "hero"
	KeySiteMeta        Key = "site_meta"
	KeyTutorialSection Key = "tutorial_section"
	KeyHeader          Key = "header"
	KeyFooter          Key = "footer"
	KeyGrundlagenPage  Key = "grundlagen_page"
)

type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type Hero struct {
	Badge        string `json:"badge"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Image        string `json:"image"`
	PrimaryCTA   Link   `json:"primaryCta"`
	SecondaryCTA Link   `json:"secondaryCta"`
}

type SiteMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Language    string   `json:"language"`
}

type TutorialSection struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	EmptyMessage string `json:"emptyMessage"`
}

type Header struct {
	Brand      string              `json:"brand"`
	Logo       string              `json:"logo"`
	ShowSearch bool                `json:"showSearch"`
	Navigation []vo.NavigationItem `json:"navigation"`
}

type Footer struct {
	Text      string `json:"text"`
	Copyright string `json:"copyright"`
	Links     []Link `json:"links"`
}

type TopicBlock struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Points      []string `json:"points"`
}

type GrundlagenPage struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Blocks      []TopicBlock `json:"blocks"`
}

// Sections holds every editable block of site content. Values returned by
// the Store share slices with its state and must be treated as read-only.
type Sections struct {
	Hero            Hero            `json:"hero"`
	SiteMeta        SiteMeta        `json:"site_meta"`
	TutorialSection TutorialSection `json:"tutorial_section"`
	Header          Header          `json:"header"`
	Footer          Footer          `json:"footer"`
	GrundlagenPage  GrundlagenPage  `json:"grundlagen_page"`
}

type sectionField struct {
	field  func(*Sections) any
	assign func(dst, src *Sections)
}

var sectionFields = map[Key]sectionField{
	KeyHero: {
		field:  func(s *Sections) any { return &s.Hero },
		assign: func(dst, src *Sections) { dst.Hero = src.Hero },
	},
	KeySiteMeta: {
		field:  func(s *Sections) any { return &s.SiteMeta },
		assign: func(dst, src *Sections) { dst.SiteMeta = src.SiteMeta },
	},
	KeyTutorialSection: {
		field:  func(s *Sections) any { return &s.TutorialSection },
		assign: func(dst, src *Sections) { dst.TutorialSection = src.TutorialSection },
	},
	KeyHeader: {
		field:  func(s *Sections) any { return &s.Header },
		assign: func(dst, src *Sections) { dst.Header = src.Header },
	},
	KeyFooter: {
		field:  func(s *Sections) any { return &s.Footer },
		assign: func(dst, src *Sections) { dst.Footer = src.Footer },
	},
	KeyGrundlagenPage: {
		field:  func(s *Sections) any { return &s.GrundlagenPage },
		assign: func(dst, src *Sections) { dst.GrundlagenPage = src.GrundlagenPage },
	},
}

// Keys lists the known section keys in a stable order.
func Keys() []Key {
	keys := make([]Key, 0, len(sectionFields))
	for k := range sectionFields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func ParseKey(s string) (Key, error) {
	k := Key(s)
	if _, ok := sectionFields[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
	}
	return k, nil
}

// Get returns the value of one section.
func (s Sections) Get(key Key) (any, error) {
	sf, ok := sectionFields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}
	v := s
	// dereference the field pointer of the copy
	switch f := sf.field(&v).(type) {
	case *Hero:
		return *f, nil
	case *SiteMeta:
		return *f, nil
	case *TutorialSection:
		return *f, nil
	case *Header:
		return *f, nil
	case *Footer:
		return *f, nil
	case *GrundlagenPage:
		return *f, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
}

// mergeSection decodes raw over the compiled-in default of key and stores the
// result in dst. Fields missing from raw keep their default. On error dst is
// left untouched.
func mergeSection(dst *Sections, key Key, raw json.RawMessage) error {
	sf, ok := sectionFields[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}
	merged := Defaults()
	field := sf.field(&merged)
	dropReplacedSlices(field, raw)
	if err := json.Unmarshal(raw, field); err != nil {
		return fmt.Errorf("section %q: %w", key, err)
	}
	sf.assign(dst, &merged)
	return nil
}

// dropReplacedSlices nils every slice field of the struct behind ptr that raw
// provides. encoding/json decodes into the existing backing array, which
// would otherwise blend default elements into the server's list.
func dropReplacedSlices(ptr any, raw json.RawMessage) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil || len(present) == 0 {
		return
	}
	v := reflect.ValueOf(ptr).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Type.Kind() != reflect.Slice {
			continue
		}
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if _, ok := present[name]; ok {
			v.Field(i).Set(reflect.Zero(t.Field(i).Type))
		}
	}
}
