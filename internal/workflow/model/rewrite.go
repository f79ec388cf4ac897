// Package model 定义工作流各节点的输入输出
package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RewriteInput 改写链路输入
type RewriteInput struct {
	Provider        string
	RawText         string
	ToneInstruction string
	SectionCount    int
	FreePrompt      string
}

// RewriteReply 模型返回的改写结果
type RewriteReply struct {
	Sections []ReplySection `json:"sections"`
}

// ReplySection 模型返回的单个段落，id 与 order 可能缺失或类型不一致；编号以数组位置为准，order 不参与排序
type ReplySection struct {
	SectionID   FlexString `json:"section_id"`
	SectionText string     `json:"section_text"`
	Order       FlexInt    `json:"order"`
}

// FlexString 兼容字符串与数字
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FlexInt 兼容数字与数字字符串，无法解析时为 0
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(int(n))
	return nil
}
