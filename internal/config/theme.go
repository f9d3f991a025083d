package config

import (
	"errors"
	"fmt"
	"regexp"
)

type Theme struct {
	PrimaryColor string `json:"primary_color"`
}

func DefaultTheme() Theme {
	return Theme{PrimaryColor: "#6463b6"}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func (t Theme) Validate() error {
	if !hexColor.MatchString(t.PrimaryColor) {
		return fmt.Errorf("primary_color must be a hex color, got %q", t.PrimaryColor)
	}
	return nil
}

func LoadTheme(path string) (Theme, error) {
	theme := DefaultTheme()
	if err := LoadJSON(path, &theme); err != nil {
		if errors.Is(err, ErrNoDocument) {
			return DefaultTheme(), nil
		}
		return DefaultTheme(), err
	}
	return theme, nil
}

func SaveTheme(path string, theme Theme) error {
	if err := theme.Validate(); err != nil {
		return err
	}
	return WriteJSON(path, theme)
}
