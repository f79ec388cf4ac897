package notegen

import (
	"fmt"
	"iter"
)

// 进度节点
const (
	progressRewriting  = 10
	progressRewritten  = 30
	progressGenerating = 35
	progressImageSpan  = 60
	progressRetry      = 50
)

// 步骤文案
const (
	stepRewriting  = "AI正在改写文案..."
	stepRewritten  = "文案改写完成，正在生成配图..."
	stepDone       = "生成完成！"
	stepFailed     = "生成失败"
	stepRetryFail  = "重试失败"
	stepGenerating = "正在生成配图 (%d/%d)..."
	stepRetrying   = "正在重新生成段落 %d 的配图..."
)

// Progress 单步进度
type Progress struct {
	Percent int
	Label   string
}

// progressSteps 依次产出每个段落开始前的进度 35 + (i/N)*60
func progressSteps(n int) iter.Seq2[int, Progress] {
	return func(yield func(int, Progress) bool) {
		for i := 0; i < n; i++ {
			p := Progress{
				Percent: progressGenerating + i*progressImageSpan/n,
				Label:   fmt.Sprintf(stepGenerating, i+1, n),
			}
			if !yield(i, p) {
				return
			}
		}
	}
}
