// Package catalog 维护改写语气与配图风格的预设模板
package catalog

// DefaultToneID 未识别语气时使用的模板
const DefaultToneID = "casual"

// FallbackStylePrompt 未指定或未识别风格时的通用配图描述
const FallbackStylePrompt = "小红书风格，精致美观，色彩明亮，符合年轻人审美"

// Tone 改写语气
type Tone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Prompt      string `json:"-"`
}

// Style 配图风格
type Style struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Preview     string `json:"preview"`
	Prompt      string `json:"-"`
}

var tones = []Tone{
	{
		ID: "casual", Name: "轻松种草", Description: "亲切自然，像朋友分享", Icon: "💬",
		Prompt: "用轻松亲切的语气，像朋友分享一样，多用\"姐妹们\"、\"宝子们\"等称呼",
	},
	{
		ID: "professional", Name: "专业测评", Description: "客观详细，有理有据", Icon: "📊",
		Prompt: "用专业客观的语气，有理有据，适当使用数据和对比",
	},
	{
		ID: "storytelling", Name: "故事叙述", Description: "娓娓道来，引人入胜", Icon: "📖",
		Prompt: "用故事叙述的方式，娓娓道来，有情节感和代入感",
	},
	{
		ID: "funny", Name: "幽默搞笑", Description: "轻松有趣，笑点满满", Icon: "😄",
		Prompt: "用幽默搞笑的语气，轻松有趣，加入一些网络流行语",
	},
	{
		ID: "emotional", Name: "情感共鸣", Description: "真挚动人，触动心弦", Icon: "💕",
		Prompt: "用真挚动人的语气，触动心弦，引发情感共鸣",
	},
}

var styles = []Style{
	{
		ID: "food", Name: "美食探店", Description: "暖色调、食物特写",
		Preview: "https://images.unsplash.com/photo-1546069901-ba9599a7e63c?auto=format&fit=crop&q=80&w=600",
		Prompt:  "美食摄影风格，暖色调，食物特写，精致摆盘，柔和光线，ins美食博主风格",
	},
	{
		ID: "travel", Name: "旅行日记", Description: "风景大片、清新自然",
		Preview: "https://images.unsplash.com/photo-1507525428034-b723cf961d3e?auto=format&fit=crop&q=80&w=600",
		Prompt:  "旅行风景大片，清新自然，蓝天白云，广角视角，明亮色调，治愈系风格",
	},
	{
		ID: "fashion", Name: "穿搭分享", Description: "时尚街拍、简约大气",
		Preview: "https://images.unsplash.com/photo-1483985988355-763728e1935b?auto=format&fit=crop&q=80&w=600",
		Prompt:  "时尚街拍风格，简约大气，都市感，高级质感，杂志封面感",
	},
	{
		ID: "lifestyle", Name: "生活日常", Description: "温馨居家、ins风格",
		Preview: "https://images.unsplash.com/photo-1513519245088-0e12902e5a38?auto=format&fit=crop&q=80&w=600",
		Prompt:  "温馨居家风格，ins简约风，柔和滤镜，生活气息，自然光线",
	},
	{
		ID: "beauty", Name: "美妆护肤", Description: "柔光特写、产品展示",
		Preview: "https://images.unsplash.com/photo-1522335789203-aabd1fc54bc9?auto=format&fit=crop&q=80&w=600",
		Prompt:  "美妆产品风格，柔光特写，干净背景，产品展示，精致细腻",
	},
	{
		ID: "knowledge", Name: "知识分享", Description: "清晰图表、文字排版",
		Preview: "https://images.unsplash.com/photo-1517842645767-c639042777db?auto=format&fit=crop&q=80&w=600",
		Prompt:  "知识分享风格，清晰简洁，文字排版，图表设计，专业感",
	},
}

// Tones 返回全部语气模板副本
func Tones() []Tone {
	return append([]Tone(nil), tones...)
}

// Styles 返回全部风格模板副本
func Styles() []Style {
	return append([]Style(nil), styles...)
}

// LookupTone 按 ID 查找语气
func LookupTone(id string) (Tone, bool) {
	for _, t := range tones {
		if t.ID == id {
			return t, true
		}
	}
	return Tone{}, false
}

// LookupStyle 按 ID 查找风格
func LookupStyle(id string) (Style, bool) {
	for _, s := range styles {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

// TonePrompt 返回语气描述，未识别时回退到 casual
func TonePrompt(id string) string {
	if t, ok := LookupTone(id); ok {
		return t.Prompt
	}
	t, _ := LookupTone(DefaultToneID)
	return t.Prompt
}

// StylePrompt 返回风格描述，空或未识别时使用通用描述
func StylePrompt(id string) string {
	if s, ok := LookupStyle(id); ok {
		return s.Prompt
	}
	return FallbackStylePrompt
}
