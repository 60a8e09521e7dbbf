// Package language is the single source of truth for language code handling:
// base ISO codes, display names, the region-qualified variants the speech
// provider expects, and the synthesis voice catalogue. Every other package
// goes through Normalize/SpeechCode/VoiceFor instead of keeping its own map.
package language

import "strings"

type Language struct {
	Code   string // base ISO code, ex: "en"
	Name   string // display name, ex: "English"
	Speech string // provider recognition/synthesis locale, ex: "en-US"

	FemaleVoice string // provider voice identifiers; empty means use default
	MaleVoice   string
}

const (
	DefaultVoice = "en-US-JennyNeural"
	GenderFemale = "female"
	GenderMale   = "male"
)

var table = []Language{
	{Code: "en", Name: "English", Speech: "en-US", FemaleVoice: "en-US-JennyNeural", MaleVoice: "en-US-GuyNeural"},
	{Code: "lv", Name: "Latvian", Speech: "lv-LV", FemaleVoice: "lv-LV-EveritaNeural", MaleVoice: "lv-LV-NilsNeural"},
	{Code: "lt", Name: "Lithuanian", Speech: "lt-LT", FemaleVoice: "lt-LT-OnaNeural", MaleVoice: "lt-LT-LeonasNeural"},
	{Code: "et", Name: "Estonian", Speech: "et-EE", FemaleVoice: "et-EE-AnuNeural", MaleVoice: "et-EE-KertNeural"},
	{Code: "ru", Name: "Russian", Speech: "ru-RU", FemaleVoice: "ru-RU-SvetlanaNeural", MaleVoice: "ru-RU-DmitryNeural"},
	{Code: "de", Name: "German", Speech: "de-DE", FemaleVoice: "de-DE-KatjaNeural", MaleVoice: "de-DE-ConradNeural"},
	{Code: "fr", Name: "French", Speech: "fr-FR", FemaleVoice: "fr-FR-DeniseNeural", MaleVoice: "fr-FR-HenriNeural"},
	{Code: "es", Name: "Spanish", Speech: "es-ES", FemaleVoice: "es-ES-ElviraNeural", MaleVoice: "es-ES-AlvaroNeural"},
	{Code: "it", Name: "Italian", Speech: "it-IT", FemaleVoice: "it-IT-ElsaNeural", MaleVoice: "it-IT-DiegoNeural"},
	{Code: "pt", Name: "Portuguese", Speech: "pt-PT", FemaleVoice: "pt-PT-RaquelNeural", MaleVoice: "pt-PT-DuarteNeural"},
	{Code: "nl", Name: "Dutch", Speech: "nl-NL", FemaleVoice: "nl-NL-ColetteNeural", MaleVoice: "nl-NL-MaartenNeural"},
	{Code: "pl", Name: "Polish", Speech: "pl-PL", FemaleVoice: "pl-PL-AgnieszkaNeural", MaleVoice: "pl-PL-MarekNeural"},
	{Code: "sv", Name: "Swedish", Speech: "sv-SE", FemaleVoice: "sv-SE-SofieNeural", MaleVoice: "sv-SE-MattiasNeural"},
	{Code: "fi", Name: "Finnish", Speech: "fi-FI", FemaleVoice: "fi-FI-NooraNeural", MaleVoice: "fi-FI-HarriNeural"},
	{Code: "da", Name: "Danish", Speech: "da-DK", FemaleVoice: "da-DK-ChristelNeural", MaleVoice: "da-DK-JeppeNeural"},
	{Code: "no", Name: "Norwegian", Speech: "nb-NO", FemaleVoice: "nb-NO-IselinNeural", MaleVoice: "nb-NO-FinnNeural"},
	{Code: "zh", Name: "Chinese", Speech: "zh-CN", FemaleVoice: "zh-CN-XiaoxiaoNeural", MaleVoice: "zh-CN-YunxiNeural"},
	{Code: "ja", Name: "Japanese", Speech: "ja-JP", FemaleVoice: "ja-JP-NanamiNeural", MaleVoice: "ja-JP-KeitaNeural"},
	{Code: "ko", Name: "Korean", Speech: "ko-KR", FemaleVoice: "ko-KR-SunHiNeural", MaleVoice: "ko-KR-InJoonNeural"},
	{Code: "ar", Name: "Arabic", Speech: "ar-SA", FemaleVoice: "ar-SA-ZariyahNeural", MaleVoice: "ar-SA-HamedNeural"},
	{Code: "hi", Name: "Hindi", Speech: "hi-IN", FemaleVoice: "hi-IN-SwaraNeural", MaleVoice: "hi-IN-MadhurNeural"},
	{Code: "tr", Name: "Turkish", Speech: "tr-TR", FemaleVoice: "tr-TR-EmelNeural", MaleVoice: "tr-TR-AhmetNeural"},
	{Code: "cs", Name: "Czech", Speech: "cs-CZ", FemaleVoice: "cs-CZ-VlastaNeural", MaleVoice: "cs-CZ-AntoninNeural"},
	{Code: "hu", Name: "Hungarian", Speech: "hu-HU", FemaleVoice: "hu-HU-NoemiNeural", MaleVoice: "hu-HU-TamasNeural"},
	{Code: "ro", Name: "Romanian", Speech: "ro-RO", FemaleVoice: "ro-RO-AlinaNeural", MaleVoice: "ro-RO-EmilNeural"},
	{Code: "bg", Name: "Bulgarian", Speech: "bg-BG", FemaleVoice: "bg-BG-KalinaNeural", MaleVoice: "bg-BG-BorislavNeural"},
	{Code: "el", Name: "Greek", Speech: "el-GR", FemaleVoice: "el-GR-AthinaNeural", MaleVoice: "el-GR-NestorasNeural"},
	{Code: "he", Name: "Hebrew", Speech: "he-IL", FemaleVoice: "he-IL-HilaNeural", MaleVoice: "he-IL-AvriNeural"},
	{Code: "th", Name: "Thai", Speech: "th-TH", FemaleVoice: "th-TH-PremwadeeNeural", MaleVoice: "th-TH-NiwatNeural"},
	{Code: "vi", Name: "Vietnamese", Speech: "vi-VN", FemaleVoice: "vi-VN-HoaiMyNeural", MaleVoice: "vi-VN-NamMinhNeural"},
	{Code: "id", Name: "Indonesian", Speech: "id-ID", FemaleVoice: "id-ID-GadisNeural", MaleVoice: "id-ID-ArdiNeural"},
	{Code: "ms", Name: "Malay", Speech: "ms-MY", FemaleVoice: "ms-MY-YasminNeural", MaleVoice: "ms-MY-OsmanNeural"},
	{Code: "uk", Name: "Ukrainian", Speech: "uk-UA", FemaleVoice: "uk-UA-PolinaNeural", MaleVoice: "uk-UA-OstapNeural"},
	{Code: "sk", Name: "Slovak", Speech: "sk-SK", FemaleVoice: "sk-SK-ViktoriaNeural", MaleVoice: "sk-SK-LukasNeural"},
	{Code: "sl", Name: "Slovenian", Speech: "sl-SI", FemaleVoice: "sl-SI-PetraNeural", MaleVoice: "sl-SI-RokNeural"},
	{Code: "sr", Name: "Serbian", Speech: "sr-RS", FemaleVoice: "sr-RS-SophieNeural", MaleVoice: "sr-RS-NicholasNeural"},
	{Code: "hr", Name: "Croatian", Speech: "hr-HR", FemaleVoice: "hr-HR-GabrijelaNeural", MaleVoice: "hr-HR-SreckoNeural"},
}

var (
	byCode = map[string]Language{}
	byName = map[string]Language{}
)

func init() {
	for _, l := range table {
		byCode[l.Code] = l
		byName[strings.ToLower(l.Name)] = l
	}
}

// Normalize reduces any code or display-name form to the base ISO code,
// ex: "en-US" -> "en", "English" -> "en". Unknown inputs come back
// lowercased with the region stripped, so callers stay deterministic
// even for languages outside the catalogue.
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if l, ok := byName[strings.ToLower(v)]; ok {
		return l.Code
	}
	base := v
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}
	return strings.ToLower(base)
}

// NameFor returns the display name for a code, or the input unchanged when
// the code is not in the catalogue.
func NameFor(code string) string {
	if l, ok := byCode[Normalize(code)]; ok {
		return l.Name
	}
	return code
}

// SpeechCode maps any language form to the region-qualified locale the
// speech provider expects. Inputs already in xx-XX form pass through,
// matching the recognizer setup in the capture pipeline.
func SpeechCode(v string) string {
	if l, ok := byCode[Normalize(v)]; ok {
		return l.Speech
	}
	if strings.Contains(v, "-") {
		return v
	}
	return v
}

// VoiceFor picks a deterministic synthesis voice for a language and a
// configured voice gender, falling back to DefaultVoice when the pair is
// unmapped.
func VoiceFor(lang, gender string) string {
	l, ok := byCode[Normalize(lang)]
	if !ok {
		return DefaultVoice
	}
	var v string
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case GenderMale:
		v = l.MaleVoice
	default:
		v = l.FemaleVoice
	}
	if v == "" {
		return DefaultVoice
	}
	return v
}

// Known reports whether the base code is in the catalogue.
func Known(code string) bool {
	_, ok := byCode[Normalize(code)]
	return ok
}
