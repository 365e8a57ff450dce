// Package openlibrary implements parsing helpers for Open Library bulk dump
// records: the MARC language table, free-text date parsing, description
// cleanup, series strings, and cover/photo URL construction.
package openlibrary

import (
	"encoding/json"
	"strings"
)

// marcToISO maps the 3-letter MARC codes used in OL dumps to ISO 639-1.
// Several languages carry both a bibliographic and a terminologic MARC code
// (fre/fra, ger/deu, ...); both map to the same ISO code.
var marcToISO = map[string]string{
	"eng": "en",
	"fre": "fr", "fra": "fr",
	"ger": "de", "deu": "de",
	"spa": "es",
	"ita": "it",
	"por": "pt",
	"rus": "ru",
	"jpn": "ja",
	"chi": "zh", "zho": "zh",
	"kor": "ko",
	"ara": "ar",
	"hin": "hi",
	"tur": "tr",
	"pol": "pl",
	"dut": "nl", "nld": "nl",
	"swe": "sv",
	"nor": "no",
	"dan": "da",
	"fin": "fi",
	"gre": "el", "ell": "el",
	"heb": "he",
	"tha": "th",
	"vie": "vi",
	"ukr": "uk",
	"ces": "cs", "cze": "cs",
	"rum": "ro", "ron": "ro",
	"hun": "hu",
	"cat": "ca",
	"bul": "bg",
	"hrv": "hr",
	"srp": "sr",
	"slk": "sk", "slo": "sk",
	"slv": "sl",
	"lit": "lt",
	"lav": "lv",
	"est": "et",
	"ind": "id",
	"may": "ms", "msa": "ms",
	"per": "fa", "fas": "fa",
	"ben": "bn",
	"tam": "ta",
	"tel": "te",
	"mar": "mr",
	"guj": "gu",
	"kan": "kn",
	"mal": "ml",
	"pan": "pa",
	"urd": "ur",
	"lat": "la",
	"glg": "gl",
	"eus": "eu", "baq": "eu",
	"wel": "cy", "cym": "cy",
	"gle": "ga", "iri": "ga",
	"ice": "is", "isl": "is",
	"geo": "ka", "kat": "ka",
	"arm": "hy", "hye": "hy",
	"mac": "mk", "mkd": "mk",
	"alb": "sq", "sqi": "sq",
	"bos": "bs",
	"afr": "af",
	"swa": "sw",
	"amh": "am",
	"tgl": "tl", "fil": "tl",
	"mlt": "mt",
}

// ISOFromMARC maps a bare MARC code to ISO 639-1.
func ISOFromMARC(code string) (string, bool) {
	iso, ok := marcToISO[code]
	return iso, ok
}

// LanguageFromRef resolves a language reference from a dump record. The
// field appears either as {"key": "/languages/eng"} or as a bare string.
// Returns ("", false) when the reference is absent or the code is unmapped.
func LanguageFromRef(ref json.RawMessage) (string, bool) {
	if len(ref) == 0 {
		return "", false
	}

	var obj struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(ref, &obj); err == nil && obj.Key != "" {
		return ISOFromMARC(strings.TrimPrefix(obj.Key, "/languages/"))
	}

	var s string
	if err := json.Unmarshal(ref, &s); err == nil {
		return ISOFromMARC(strings.TrimPrefix(s, "/languages/"))
	}

	return "", false
}
