// Package config loads, validates and persists procmon settings.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"emperror.dev/errors"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"procmon/internal/models"
)

// FileName is the default settings file name.
const FileName = "config.json"

// ErrInvalidFields is returned by Load when some fields were reset to their
// defaults. The accompanying settings are still usable.
var ErrInvalidFields = errors.NewPlain("invalid settings fields")

// Settings is the on-disk configuration. Alert levels and retention feed the
// collection loop; theme, shape and alpha belong to the display and are
// carried through unchanged.
type Settings struct {
	CPUAlert       int     `json:"cpu_alert" validate:"min=1,max=100"`
	RAMAlert       int     `json:"ram_alert" validate:"min=1,max=100"`
	GPUAlert       int     `json:"gpu_alert" validate:"min=1,max=100"`
	ProcessAlert   int     `json:"process_alert" validate:"min=1,max=100"`
	DaysToKeep     int     `json:"days_to_keep" validate:"min=1,max=365"`
	Theme          string  `json:"theme" validate:"required,max=64"`
	Shape          string  `json:"shape" validate:"oneof=circle square"`
	Alpha          float64 `json:"alpha" validate:"gte=0.2,lte=1"`
	DiscordWebhook string  `json:"discord_webhook,omitempty" validate:"omitempty,url"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	return Settings{
		CPUAlert:     90,
		RAMAlert:     90,
		GPUAlert:     90,
		ProcessAlert: 50,
		DaysToKeep:   7,
		Theme:        "arc",
		Shape:        "circle",
		Alpha:        0.8,
	}
}

// Thresholds extracts the alert levels.
func (s Settings) Thresholds() models.Thresholds {
	return models.Thresholds{
		CPUAlert:     s.CPUAlert,
		RAMAlert:     s.RAMAlert,
		GPUAlert:     s.GPUAlert,
		ProcessAlert: s.ProcessAlert,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	return validate.Struct(s)
}

// Sanitize replaces every invalid field with its default. The returned list
// names the replaced fields by their JSON key.
func Sanitize(s Settings) (Settings, []string) {
	err := validate.Struct(s)
	if err == nil {
		return s, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Defaults(), []string{"*"}
	}
	defaults := reflect.ValueOf(Defaults())
	out := reflect.ValueOf(&s).Elem()
	fixed := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := out.FieldByName(fe.StructField())
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		field.Set(defaults.FieldByName(fe.StructField()))
		fixed = append(fixed, fe.Field())
	}
	return s, fixed
}

// Load reads settings from path. The returned settings are always usable:
// a missing or unparsable file yields the defaults, and out-of-range fields
// are reset individually. The error describes what was replaced.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), errors.Wrapf(err, "read settings %s", path)
	}
	settings := Defaults()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Defaults(), errors.Wrapf(err, "parse settings %s", path)
	}
	settings, fixed := Sanitize(settings)
	if len(fixed) > 0 {
		return settings, errors.Wrapf(ErrInvalidFields, "settings %s: reset to defaults: %s", path, strings.Join(fixed, ", "))
	}
	return settings, nil
}

// Save writes settings as indented JSON, creating the directory when needed.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return errors.Wrap(err, "invalid settings")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create settings directory")
	}
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write settings")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "replace settings")
	}
	return nil
}
