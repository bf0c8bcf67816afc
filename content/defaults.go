package content

import "github.com/foomo/contentsite/service/vo"

// Defaults returns a fresh copy of the compiled-in site content.
func Defaults() Sections {
	return Sections{
		Hero: Hero{
			Badge:        "Neu",
			Title:        "Lerne Programmieren mit praktischen Tutorials",
			Subtitle:     "Schritt für Schritt von den Grundlagen bis zu fortgeschrittenen Themen.",
			PrimaryCTA:   Link{Label: "Tutorials entdecken", Href: "#tutorials"},
			SecondaryCTA: Link{Label: "Grundlagen", Href: "/grundlagen"},
		},
		SiteMeta: SiteMeta{
			Title:       "Tutorials",
			Description: "Praxisnahe Tutorials rund um Softwareentwicklung.",
			Keywords:    []string{"tutorials", "programmieren", "lernen"},
			Language:    "de",
		},
		TutorialSection: TutorialSection{
			Title:        "Alle Tutorials",
			Description:  "Wähle ein Thema und leg los.",
			EmptyMessage: "Noch keine Tutorials vorhanden.",
		},
		Header: Header{
			Brand:      "Tutorials",
			ShowSearch: true,
			Navigation: []vo.NavigationItem{
				{ID: "home", Label: "Start", Type: vo.NavigationRoute, Path: "/"},
				{ID: "tutorials", Label: "Tutorials", Type: vo.NavigationSection, Section: "tutorials"},
				{ID: "grundlagen", Label: "Grundlagen", Type: vo.NavigationRoute, Path: "/grundlagen"},
			},
		},
		Footer: Footer{
			Text:      "Gemacht mit Neugier.",
			Copyright: "© Tutorials",
			Links: []Link{
				{Label: "Impressum", Href: "/impressum"},
				{Label: "Datenschutz", Href: "/datenschutz"},
			},
		},
		GrundlagenPage: GrundlagenPage{
			Title:       "Grundlagen",
			Description: "Das Fundament für alle weiteren Tutorials.",
			Blocks: []TopicBlock{
				{Title: "Variablen", Points: []string{"Deklaration", "Typen", "Gültigkeitsbereich"}},
				{Title: "Kontrollstrukturen", Points: []string{"Bedingungen", "Schleifen"}},
				{Title: "Funktionen", Points: []string{"Parameter", "Rückgabewerte"}},
			},
		},
	}
}
