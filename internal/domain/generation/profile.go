package generation

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// OptionValue is one allowed value of an option.
type OptionValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionSpec describes an enumerated option of a kind.
type OptionSpec struct {
	Name    string        `json:"name"`
	Default string        `json:"default"`
	Values  []OptionValue `json:"values"`
}

// Allows reports whether value belongs to the option's enumerated set.
func (o OptionSpec) Allows(value string) bool {
	for _, v := range o.Values {
		if v.Value == value {
			return true
		}
	}
	return false
}

// Timing is the simulated progress profile of a kind.
type Timing struct {
	PollInterval  time.Duration `json:"poll_interval"`
	MaxIncrement  float64       `json:"max_increment"`
	Ceiling       int           `json:"ceiling"`
	TotalDuration time.Duration `json:"total_duration"`
}

// Profile holds everything that varies between kinds.
type Profile struct {
	Kind           Kind         `json:"kind"`
	Media          MediaKind    `json:"media"`
	RequiresPrompt bool         `json:"requires_prompt"`
	ImageArity     int          `json:"image_arity"`
	Options        []OptionSpec `json:"options"`
	Presets        []string     `json:"presets,omitempty"`
	Timing         Timing       `json:"timing"`

	MIMEType       string `json:"mime_type"`
	DownloadPrefix string `json:"-"`
	Extension      string `json:"-"`

	// reference builds the canned result reference for a validated request.
	reference func(req *Request) string
}

const (
	textToImageEndpoint = "https://trae-api-sg.mchost.guru/api/ide/v1/text_to_image"
	sampleVideoBase     = "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/"
)

var profiles = map[Kind]Profile{
	KindTextToImage: {
		Kind:           KindTextToImage,
		Media:          MediaImage,
		RequiresPrompt: true,
		Options: []OptionSpec{{
			Name:    "style",
			Default: "cartoon",
			Values: []OptionValue{
				{Value: "cartoon", Label: "卡通风格"},
				{Value: "realistic", Label: "写实风格"},
				{Value: "watercolor", Label: "水彩风格"},
				{Value: "anime", Label: "动漫风格"},
			},
		}},
		Presets: []string{
			"可爱的小猫咪在花园里玩耍",
			"彩虹色的独角兽在云朵上飞翔",
			"神奇的魔法城堡在山顶上",
			"友好的机器人在帮助小朋友",
			"美丽的蝴蝶在花丛中飞舞",
			"勇敢的小恐龙在探险",
		},
		Timing: Timing{
			PollInterval:  200 * time.Millisecond,
			MaxIncrement:  20,
			Ceiling:       90,
			TotalDuration: 2 * time.Second,
		},
		MIMEType:       "image/jpeg",
		DownloadPrefix: "ai-generated",
		Extension:      "jpg",
		reference:      textToImageReference,
	},
	KindTextToVideo: {
		Kind:           KindTextToVideo,
		Media:          MediaVideo,
		RequiresPrompt: true,
		Options: []OptionSpec{{
			Name:    "duration",
			Default: "3",
			Values: []OptionValue{
				{Value: "3", Label: "3秒"},
				{Value: "5", Label: "5秒"},
				{Value: "10", Label: "10秒"},
			},
		}},
		Presets: []string{
			"小鸟在蓝天白云中自由飞翔",
			"彩虹独角兽在草地上奔跑",
			"小猫咪在阳光下打盹",
			"蝴蝶在花丛中翩翩起舞",
			"小火车穿过美丽的山谷",
			"海豚在清澈的海水中游泳",
		},
		Timing: Timing{
			PollInterval:  500 * time.Millisecond,
			MaxIncrement:  15,
			Ceiling:       90,
			TotalDuration: 5 * time.Second,
		},
		MIMEType:       "video/mp4",
		DownloadPrefix: "ai-video",
		Extension:      "mp4",
		reference:      fixedReference(sampleVideoBase + "BigBuckBunny.mp4"),
	},
	KindImageToVideo: {
		Kind:           KindImageToVideo,
		Media:          MediaVideo,
		RequiresPrompt: true,
		ImageArity:     1,
		Options: []OptionSpec{{
			Name:    "effect",
			Default: "zoom",
			Values: []OptionValue{
				{Value: "zoom", Label: "缩放效果"},
				{Value: "rotate", Label: "旋转效果"},
				{Value: "float", Label: "飘动效果"},
				{Value: "parallax", Label: "视差效果"},
			},
		}},
		Timing: Timing{
			PollInterval:  400 * time.Millisecond,
			MaxIncrement:  10,
			Ceiling:       90,
			TotalDuration: 4 * time.Second,
		},
		MIMEType:       "video/mp4",
		DownloadPrefix: "image-to-video",
		Extension:      "mp4",
		reference:      fixedReference(sampleVideoBase + "ElephantsDream.mp4"),
	},
	KindFrameToVideo: {
		Kind:       KindFrameToVideo,
		Media:      MediaVideo,
		ImageArity: 2,
		Options: []OptionSpec{
			{
				Name:    "duration",
				Default: "3",
				Values: []OptionValue{
					{Value: "2", Label: "2秒"},
					{Value: "3", Label: "3秒"},
					{Value: "5", Label: "5秒"},
				},
			},
			{
				Name:    "transition",
				Default: "smooth",
				Values: []OptionValue{
					{Value: "smooth", Label: "平滑过渡"},
					{Value: "morph", Label: "形变过渡"},
					{Value: "fade", Label: "淡入淡出"},
					{Value: "wipe", Label: "擦除过渡"},
				},
			},
		},
		Timing: Timing{
			PollInterval:  300 * time.Millisecond,
			MaxIncrement:  8,
			Ceiling:       90,
			TotalDuration: 5 * time.Second,
		},
		MIMEType:       "video/mp4",
		DownloadPrefix: "frame-transition",
		Extension:      "mp4",
		reference:      fixedReference(sampleVideoBase + "ForBiggerBlazes.mp4"),
	},
}

// ProfileFor returns the profile of a kind.
func ProfileFor(kind Kind) (Profile, error) {
	p, ok := profiles[kind]
	if !ok {
		return Profile{}, newError(ErrorUnsupportedKind, "unsupported kind %q", kind)
	}
	return p, nil
}

// Profiles returns the profiles of all kinds in display order.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, k := range Kinds() {
		out = append(out, profiles[k])
	}
	return out
}

// WithTiming returns a copy of the profile using the given timing.
func (p Profile) WithTiming(t Timing) Profile {
	p.Timing = t
	return p
}

// Option returns the spec of the named option.
func (p Profile) Option(name string) (OptionSpec, bool) {
	for _, o := range p.Options {
		if o.Name == name {
			return o, true
		}
	}
	return OptionSpec{}, false
}

// Validate checks a request against the profile and returns a normalized copy
// with omitted options set to their defaults. Rules are evaluated in order:
// prompt for text kinds, image count then prompt for image-to-video, image
// count for frame-to-video, then option values. The first failure wins.
func (p Profile) Validate(req *Request) (*Request, error) {
	if req == nil {
		req = &Request{}
	}
	if req.Kind != "" && req.Kind != p.Kind {
		return nil, newError(ErrorUnsupportedKind, "request kind %q does not match session kind %q", req.Kind, p.Kind)
	}

	if p.ImageArity > 0 {
		if err := p.checkImages(req.Images); err != nil {
			return nil, err
		}
	}
	if p.RequiresPrompt && strings.TrimSpace(req.Prompt) == "" {
		return nil, newError(ErrorEmptyPrompt, "prompt must not be blank")
	}
	if p.ImageArity == 0 {
		if err := p.checkImages(req.Images); err != nil {
			return nil, err
		}
	}

	options := make(map[string]string, len(p.Options))
	for name, value := range req.Options {
		spec, ok := p.Option(name)
		if !ok {
			return nil, newError(ErrorInvalidOption, "unknown option %q for %s", name, p.Kind)
		}
		if !spec.Allows(value) {
			return nil, newError(ErrorInvalidOption, "value %q is not allowed for option %q", value, name)
		}
		options[name] = value
	}
	for _, spec := range p.Options {
		if _, ok := options[spec.Name]; !ok {
			options[spec.Name] = spec.Default
		}
	}

	images := make([]*ImagePayload, len(req.Images))
	copy(images, req.Images)

	return &Request{
		Kind:    p.Kind,
		Prompt:  req.Prompt,
		Images:  images,
		Options: options,
	}, nil
}

func (p Profile) checkImages(images []*ImagePayload) error {
	if len(images) != p.ImageArity {
		return newError(ErrorMissingImage, "%s takes %d image(s), got %d", p.Kind, p.ImageArity, len(images))
	}
	for i, img := range images {
		if img == nil || len(img.Data) == 0 {
			return newError(ErrorMissingImage, "image %d is empty", i+1)
		}
	}
	return nil
}

// NewResult builds the canned result for a validated request.
func (p Profile) NewResult(req *Request, now time.Time) *Result {
	return &Result{
		Kind:      p.Kind,
		Media:     p.Media,
		Reference: p.reference(req),
		MIMEType:  p.MIMEType,
		FileName:  fmt.Sprintf("%s-%d.%s", p.DownloadPrefix, now.UnixMilli(), p.Extension),
		CreatedAt: now,
	}
}

// componentUnescaper restores the characters a URI component keeps literal
// but QueryEscape encodes.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func textToImageReference(req *Request) string {
	prompt := fmt.Sprintf("%s, %s style, high quality, detailed", req.Prompt, req.Options["style"])
	return textToImageEndpoint + "?prompt=" + escapeComponent(prompt) + "&image_size=square_hd"
}

// escapeComponent percent-encodes s as a URI component: everything except
// letters, digits and -_.!~*'() is escaped.
func escapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

func fixedReference(ref string) func(*Request) string {
	return func(*Request) string { return ref }
}
