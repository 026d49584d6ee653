package models

// GuideSectionKey is one of the fixed farmer-guide sections.
type GuideSectionKey string

const (
	GuideSoil   GuideSectionKey = "soil"
	GuideWater  GuideSectionKey = "water"
	GuideCrop   GuideSectionKey = "crop"
	GuideMarket GuideSectionKey = "market"
)

// GuideSections is the display order of the guide.
var GuideSections = []GuideSectionKey{GuideSoil, GuideWater, GuideCrop, GuideMarket}

// GuideItemKey names one of the four lists inside a section.
type GuideItemKey string

const (
	GuideWhatToDo     GuideItemKey = "what_to_do"
	GuideWhatToAvoid  GuideItemKey = "what_to_avoid"
	GuideAdvantages   GuideItemKey = "advantages"
	GuideChallenges   GuideItemKey = "challenges"
	GuideSectionTitle GuideItemKey = "title"
)

// GuideItems is the display order inside a section.
var GuideItems = []GuideItemKey{GuideWhatToDo, GuideWhatToAvoid, GuideAdvantages, GuideChallenges}

type GuideSection struct {
	WhatToDo    []string `json:"what_to_do"`
	WhatToAvoid []string `json:"what_to_avoid"`
	Advantages  []string `json:"advantages"`
	Challenges  []string `json:"challenges"`
}

// Items returns the list stored under key.
func (s GuideSection) Items(key GuideItemKey) []string {
	switch key {
	case GuideWhatToDo:
		return s.WhatToDo
	case GuideWhatToAvoid:
		return s.WhatToAvoid
	case GuideAdvantages:
		return s.Advantages
	case GuideChallenges:
		return s.Challenges
	}
	return nil
}

// FarmerGuide maps section keys to sections. A missing section reads as empty.
type FarmerGuide map[GuideSectionKey]GuideSection

// Section never fails; absent sections are the zero value.
func (g FarmerGuide) Section(key GuideSectionKey) GuideSection {
	if g == nil {
		return GuideSection{}
	}
	return g[key]
}

func (g FarmerGuide) Clone() FarmerGuide {
	if g == nil {
		return nil
	}
	out := make(FarmerGuide, len(g))
	for k, s := range g {
		out[k] = GuideSection{
			WhatToDo:    append([]string(nil), s.WhatToDo...),
			WhatToAvoid: append([]string(nil), s.WhatToAvoid...),
			Advantages:  append([]string(nil), s.Advantages...),
			Challenges:  append([]string(nil), s.Challenges...),
		}
	}
	return out
}
