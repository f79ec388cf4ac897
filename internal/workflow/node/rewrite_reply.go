package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	wfmodel "notegen-api/internal/workflow/model"
)

var (
	ErrNoJSONObject    = errors.New("no json object in reply")
	ErrMissingSections = errors.New("reply has no sections")
	ErrEmptySection    = errors.New("reply section has no text")
)

// DecodeRewriteReply 解析改写回复：截取第一个 JSON 对象并按固定结构解码
func DecodeRewriteReply(content string) (*wfmodel.RewriteReply, error) {
	obj, ok := ExtractFirstJSONObject(content)
	if !ok {
		return nil, ErrNoJSONObject
	}

	var reply wfmodel.RewriteReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		return nil, fmt.Errorf("decode rewrite reply: %w", err)
	}
	if len(reply.Sections) == 0 {
		return nil, ErrMissingSections
	}
	for i, s := range reply.Sections {
		if strings.TrimSpace(s.SectionText) == "" {
			return nil, fmt.Errorf("section %d: %w", i+1, ErrEmptySection)
		}
	}
	return &reply, nil
}
