package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// EntityLabel 实体类别标签
type EntityLabel string

const (
	LabelCharacter EntityLabel = "character"
	LabelPlace     EntityLabel = "place"
)

// EntityOccurrence 单次实体出现记录
type EntityOccurrence struct {
	// Normalized 归一化形式，用于聚类比较
	Normalized string
	// Raw 原始表面字符串，用于规范形式评分
	Raw string
	// Label 实体类别
	Label EntityLabel
	// ChapterNumber 来源章节号
	ChapterNumber int
	// Position 在章节文本中的词序位置
	Position int
}

// EntityTagger 命名实体识别能力接口
type EntityTagger interface {
	// Tag 返回文本中识别出的实体及类别，顺序与出现位置一致
	Tag(text string) []TaggedEntity
}

// TaggedEntity 识别出的实体
type TaggedEntity struct {
	Text     string
	Label    EntityLabel
	Position int
}

// Normalize 归一化实体表面形式：NFC 规范化、小写折叠、去首尾标点
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return s
}

// Extractor 实体抽取器
type Extractor struct {
	tagger EntityTagger
}

// NewExtractor 创建实体抽取器
func NewExtractor(tagger EntityTagger) *Extractor {
	return &Extractor{tagger: tagger}
}

// Extract 扫描章节文本并产出实体出现序列，空白文本返回空序列
func (e *Extractor) Extract(text string, chapterNumber int) []EntityOccurrence {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tagged := e.tagger.Tag(text)
	occurrences := make([]EntityOccurrence, 0, len(tagged))
	for _, t := range tagged {
		normalized := Normalize(t.Text)
		if normalized == "" {
			continue
		}
		occurrences = append(occurrences, EntityOccurrence{
			Normalized:    normalized,
			Raw:           strings.TrimSpace(t.Text),
			Label:         t.Label,
			ChapterNumber: chapterNumber,
			Position:      t.Position,
		})
	}
	return occurrences
}

// RuleTagger 基于规则的命名实体识别实现
// 识别连续大写开头的词组，按称谓前缀和地名后缀推断类别
type RuleTagger struct{}

// NewRuleTagger 创建规则标注器
func NewRuleTagger() *RuleTagger {
	return &RuleTagger{}
}

// honorificPrefixes 人物称谓前缀，常见于机翻小说
var honorificPrefixes = map[string]bool{
	"elder":  true,
	"master": true,
	"sect":   true,
	"xiao":   true,
	"little": true,
	"young":  true,
	"senior": true,
	"junior": true,
	"lady":   true,
	"lord":   true,
}

// placeSuffixes 地名后缀
var placeSuffixes = map[string]bool{
	"city":      true,
	"village":   true,
	"town":      true,
	"mountain":  true,
	"peak":      true,
	"valley":    true,
	"river":     true,
	"forest":    true,
	"palace":    true,
	"pavilion":  true,
	"kingdom":   true,
	"empire":    true,
	"continent": true,
	"realm":     true,
	"region":    true,
	"province":  true,
	"hall":      true,
	"gate":      true,
}

// sentenceStarters 常见句首词，单独出现时不视为实体
var sentenceStarters = map[string]bool{
	"the": true, "a": true, "an": true, "he": true, "she": true,
	"it": true, "they": true, "we": true, "i": true, "you": true,
	"this": true, "that": true, "these": true, "those": true,
	"but": true, "and": true, "then": true, "when": true, "after": true,
	"before": true, "however": true, "suddenly": true, "meanwhile": true,
	"as": true, "at": true, "in": true, "on": true, "with": true,
	"his": true, "her": true, "their": true, "its": true, "if": true,
	"what": true, "who": true, "why": true, "how": true, "where": true,
	"there": true, "here": true, "now": true, "so": true, "yes": true,
	"no": true, "even": true, "just": true, "once": true, "while": true,
}

// Tag 识别文本中的候选实体
func (t *RuleTagger) Tag(text string) []TaggedEntity {
	words := strings.Fields(text)
	var entities []TaggedEntity

	i := 0
	for i < len(words) {
		if !isCapitalizedWord(words[i]) {
			i++
			continue
		}

		// 吸收连续大写开头的词组
		j := i
		for j < len(words) && isCapitalizedWord(words[j]) {
			j++
		}
		phrase := strings.Join(words[i:j], " ")
		phrase = strings.TrimFunc(phrase, func(r rune) bool {
			return unicode.IsPunct(r)
		})

		if phrase != "" && !isSentenceStarterPhrase(words[i:j]) && !isBareHonorific(words[i:j]) {
			entities = append(entities, TaggedEntity{
				Text:     phrase,
				Label:    classify(words[i:j]),
				Position: i,
			})
		}
		i = j
	}

	return entities
}

// isCapitalizedWord 判断词是否以大写字母开头
func isCapitalizedWord(w string) bool {
	w = strings.TrimLeftFunc(w, func(r rune) bool {
		return unicode.IsPunct(r)
	})
	if w == "" {
		return false
	}
	r := []rune(w)[0]
	return unicode.IsUpper(r)
}

// isSentenceStarterPhrase 判断词组是否仅由句首常见词构成
func isSentenceStarterPhrase(ws []string) bool {
	for _, w := range ws {
		cleaned := strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r)
		}))
		if cleaned == "" {
			continue
		}
		if !sentenceStarters[cleaned] {
			return false
		}
	}
	return true
}

// isBareHonorific 判断词组是否为不带名字的裸称谓，如句中的 "Master"
func isBareHonorific(ws []string) bool {
	if len(ws) != 1 {
		return false
	}
	cleaned := strings.ToLower(strings.TrimFunc(ws[0], func(r rune) bool {
		return unicode.IsPunct(r)
	}))
	return honorificPrefixes[cleaned]
}

// classify 根据词组内容推断实体类别，地名后缀优先，其余按人名处理
func classify(ws []string) EntityLabel {
	for _, w := range ws {
		cleaned := strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r)
		}))
		if placeSuffixes[cleaned] {
			return LabelPlace
		}
	}
	return LabelCharacter
}
