package entity

// AuditStatus 段落可用状态
type AuditStatus string

const (
	AuditStatusPass   AuditStatus = "pass"
	AuditStatusReview AuditStatus = "review"
	// AuditStatusBlocked 预留给内容审核拒绝，当前流程不会产生
	AuditStatusBlocked AuditStatus = "blocked"
)

// SectionErrorImageFailed 配图失败时写入段落的错误码
const SectionErrorImageFailed = "IMAGE_GENERATION_FAILED"

// Section 改写后的一个段落及其配图状态
type Section struct {
	SectionID   string      `json:"section_id"`
	Text        string      `json:"section_text"`
	Order       int         `json:"order"`
	ImageURL    string      `json:"image_url,omitempty"`
	AuditStatus AuditStatus `json:"audit_status"`
	ErrorCode   string      `json:"error_code,omitempty"`
}

// NewSection 创建未配图的段落
func NewSection(id, text string, order int) Section {
	return Section{
		SectionID:   id,
		Text:        text,
		Order:       order,
		AuditStatus: AuditStatusPass,
	}
}

// MarkIllustrated 配图成功
func (s *Section) MarkIllustrated(imageURL string) {
	s.ImageURL = imageURL
	s.AuditStatus = AuditStatusPass
	s.ErrorCode = ""
}

// MarkImageFailed 配图失败，段落保留但需人工关注
func (s *Section) MarkImageFailed() {
	s.ImageURL = ""
	s.AuditStatus = AuditStatusReview
	s.ErrorCode = SectionErrorImageFailed
}

// HasImage 是否已有配图
func (s *Section) HasImage() bool {
	return s.ImageURL != ""
}
