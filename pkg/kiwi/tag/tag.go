// Package tag models the part-of-speech tag set produced by the Kiwi engine.
//
// Tags are short upper-case codes (NNG, JKS, SF, ...). Grammatical categories
// used by the filter stages are fixed unions of those codes:
//
//	particles    J*  (JKS JKC JKG JKO JKB JKV JKQ JX JC)
//	endings      E*  (EP EF EC ETN ETM)
//	punctuation  SF SP SS SSO SSC SE SO SW
//	affixes      XPN XSN XSV XSA XSM
package tag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
)

// Tag is a part-of-speech code such as "NNG".
type Tag string

// Nouns and pronouns
const (
	NNG Tag = "NNG" // common noun
	NNP Tag = "NNP" // proper noun
	NNB Tag = "NNB" // bound noun
	NR  Tag = "NR"  // numeral
	NP  Tag = "NP"  // pronoun
)

// Predicates
const (
	VV  Tag = "VV"
	VA  Tag = "VA"
	VX  Tag = "VX"
	VCP Tag = "VCP"
	VCN Tag = "VCN"
)

// Modifiers and interjections
const (
	MM  Tag = "MM"
	MAG Tag = "MAG"
	MAJ Tag = "MAJ"
	IC  Tag = "IC"
)

// Particles
const (
	JKS Tag = "JKS"
	JKC Tag = "JKC"
	JKG Tag = "JKG"
	JKO Tag = "JKO"
	JKB Tag = "JKB"
	JKV Tag = "JKV"
	JKQ Tag = "JKQ"
	JX  Tag = "JX"
	JC  Tag = "JC"
)

// Endings
const (
	EP  Tag = "EP"
	EF  Tag = "EF"
	EC  Tag = "EC"
	ETN Tag = "ETN"
	ETM Tag = "ETM"
)

// Affixes and roots
const (
	XPN Tag = "XPN"
	XSN Tag = "XSN"
	XSV Tag = "XSV"
	XSA Tag = "XSA"
	XSM Tag = "XSM"
	XR  Tag = "XR"
)

// Symbols
const (
	SF  Tag = "SF"  // . ! ?
	SP  Tag = "SP"  // , / : ;
	SS  Tag = "SS"  // quotes, brackets
	SSO Tag = "SSO" // opening bracket
	SSC Tag = "SSC" // closing bracket
	SE  Tag = "SE"  // ellipsis
	SO  Tag = "SO"  // hyphen, tilde
	SW  Tag = "SW"  // other symbols
	SL  Tag = "SL"  // foreign letters
	SH  Tag = "SH"  // hanja
	SN  Tag = "SN"  // number
	SB  Tag = "SB"  // list bullet
)

// Web tokens and miscellany
const (
	UN        Tag = "UN"
	WURL      Tag = "W_URL"
	WEmail    Tag = "W_EMAIL"
	WHashtag  Tag = "W_HASHTAG"
	WMention  Tag = "W_MENTION"
	WSerial   Tag = "W_SERIAL"
	WEmoji    Tag = "W_EMOJI"
	ZCoda     Tag = "Z_CODA"
	ZSiya     Tag = "Z_SIYA"
	User0     Tag = "USER0"
	User1     Tag = "USER1"
	User2     Tag = "USER2"
	User3     Tag = "USER3"
	User4     Tag = "USER4"
)

const (
	irregular = "-I"
	regular   = "-R"
)

var known = map[Tag]struct{}{}

var (
	particles   = setOf(JKS, JKC, JKG, JKO, JKB, JKV, JKQ, JX, JC)
	endings     = setOf(EP, EF, EC, ETN, ETM)
	punctuation = setOf(SF, SP, SS, SSO, SSC, SE, SO, SW)
	affixes     = setOf(XPN, XSN, XSV, XSA, XSM)
)

func init() {
	for _, t := range []Tag{
		NNG, NNP, NNB, NR, NP,
		VV, VA, VX, VCP, VCN,
		MM, MAG, MAJ, IC,
		JKS, JKC, JKG, JKO, JKB, JKV, JKQ, JX, JC,
		EP, EF, EC, ETN, ETM,
		XPN, XSN, XSV, XSA, XSM, XR,
		SF, SP, SS, SSO, SSC, SE, SO, SW, SL, SH, SN, SB,
		UN, WURL, WEmail, WHashtag, WMention, WSerial, WEmoji, ZCoda, ZSiya,
		User0, User1, User2, User3, User4,
	} {
		known[t] = struct{}{}
	}
	// Irregular conjugation variants, e.g. VV-I for 걷다 → 걸어.
	for _, t := range []Tag{VV, VA, VX, XSA} {
		known[t+irregular] = struct{}{}
		known[t+regular] = struct{}{}
	}
}

func setOf(tags ...Tag) map[Tag]struct{} {
	m := make(map[Tag]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return m
}

// Parse upper-cases s and returns the matching tag.
func Parse(s string) (Tag, error) {
	t := Tag(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := known[t]; !ok {
		return "", fmt.Errorf("%w: %q", internalerr.ErrUnknownTag, s)
	}
	return t, nil
}

// ParseAll parses every name and fails on the first unknown one.
func ParseAll(names []string) ([]Tag, error) {
	out := make([]Tag, 0, len(names))
	for _, n := range names {
		t, err := Parse(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// All returns every known tag in lexical order.
func All() []Tag {
	out := make([]Tag, 0, len(known))
	for t := range known {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t Tag) String() string { return string(t) }

// Base strips an irregular-conjugation suffix: "VV-I" → "VV".
func (t Tag) Base() Tag {
	s := string(t)
	if strings.HasSuffix(s, irregular) || strings.HasSuffix(s, regular) {
		return Tag(s[:len(s)-2])
	}
	return t
}

// Known reports whether t belongs to the tag set.
func (t Tag) Known() bool {
	_, ok := known[t]
	return ok
}

func (t Tag) IsParticle() bool {
	_, ok := particles[t]
	return ok
}

func (t Tag) IsEnding() bool {
	_, ok := endings[t]
	return ok
}

func (t Tag) IsPunctuation() bool {
	_, ok := punctuation[t]
	return ok
}

func (t Tag) IsAffix() bool {
	_, ok := affixes[t.Base()]
	return ok
}

// IsContent reports whether t carries lexical meaning: nouns, predicates,
// modifiers, interjections and foreign/number/hanja symbols, i.e. anything
// that is not a particle, ending, punctuation mark or affix.
func (t Tag) IsContent() bool {
	return !t.IsParticle() && !t.IsEnding() && !t.IsPunctuation() && !t.IsAffix()
}

// Particles returns the particle category.
func Particles() []Tag { return keys(particles) }

// Endings returns the ending category.
func Endings() []Tag { return keys(endings) }

// Punctuation returns the punctuation category.
func Punctuation() []Tag { return keys(punctuation) }

// Affixes returns the affix category.
func Affixes() []Tag { return keys(affixes) }

func keys(m map[Tag]struct{}) []Tag {
	out := make([]Tag, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
