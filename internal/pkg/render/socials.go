package render

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lynqit/lynqit/internal/pkg/viewmodel"
)

//go:embed socials.yaml
var socialsYAML []byte

// SocialPlatform is the static style of one social network.
type SocialPlatform struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Color string `yaml:"color"`
	Icon  string `yaml:"icon"`
}

type socialsFile struct {
	Platforms []SocialPlatform `yaml:"platforms"`
}

// LoadSocialPlatforms parses the embedded platform list.
func LoadSocialPlatforms() ([]SocialPlatform, error) {
	return parseSocialPlatforms(socialsYAML)
}

func parseSocialPlatforms(data []byte) ([]SocialPlatform, error) {
	var f socialsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse social platforms: %w", err)
	}
	seen := make(map[string]bool, len(f.Platforms))
	for _, p := range f.Platforms {
		if p.Key == "" {
			return nil, fmt.Errorf("social platform without key")
		}
		if seen[p.Key] {
			return nil, fmt.Errorf("duplicate social platform %q", p.Key)
		}
		seen[p.Key] = true
	}
	return f.Platforms, nil
}

// socialRow orders the configured profiles by the platform list.
func socialRow(platforms []SocialPlatform, urls map[string]string) []viewmodel.Social {
	out := make([]viewmodel.Social, 0, len(urls))
	for _, p := range platforms {
		u, ok := urls[p.Key]
		if !ok || u == "" {
			continue
		}
		out = append(out, viewmodel.Social{
			Platform: p.Key,
			Label:    p.Label,
			URL:      u,
			Color:    p.Color,
			Icon:     p.Icon,
			Track:    "social_" + p.Key,
		})
	}
	return out
}
