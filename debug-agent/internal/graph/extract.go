package graph

import "strings"

const fence = "```"

// sourceTags are the info strings treated as python source.
var sourceTags = map[string]bool{
	"python":  true,
	"python3": true,
	"py":      true,
}

// ExtractCode picks the candidate source out of a model answer.
//
// Order: the first fence tagged as python, else the first fence of any kind,
// else the answer verbatim. A fence's content starts after its info string
// line and ends at the next fence, or at the end of the text when unterminated.
// A closing fence on the opening line makes an inline block with no info string.
// Blocks with no content are never picked.
func ExtractCode(answer string) string {
	blocks := fencedBlocks(answer)
	for _, b := range blocks {
		if sourceTags[b.tag] && b.content != "" {
			return b.content
		}
	}
	for _, b := range blocks {
		if b.content != "" {
			return b.content
		}
	}
	return answer
}

type fencedBlock struct {
	tag     string
	content string
}

func fencedBlocks(text string) []fencedBlock {
	var blocks []fencedBlock
	rest := text
	for {
		open := strings.Index(rest, fence)
		if open < 0 {
			return blocks
		}
		rest = rest[open+len(fence):]

		nl := strings.IndexByte(rest, '\n')
		if end := strings.Index(rest, fence); end >= 0 && (nl < 0 || end < nl) {
			blocks = append(blocks, fencedBlock{content: strings.TrimSpace(rest[:end])})
			rest = rest[end+len(fence):]
			continue
		}

		var info string
		if nl >= 0 {
			info, rest = rest[:nl], rest[nl+1:]
		} else {
			info, rest = rest, ""
		}

		b := fencedBlock{tag: strings.ToLower(strings.TrimSpace(info))}
		end := strings.Index(rest, fence)
		if end < 0 {
			b.content = strings.TrimSpace(rest)
			return append(blocks, b)
		}
		b.content = strings.TrimSpace(rest[:end])
		blocks = append(blocks, b)
		rest = rest[end+len(fence):]
	}
}
