package config

import "strings"

func (c *Config) normalize() error {
	var err error
	for _, field := range []*string{
		&c.Paths.WorkRoot,
		&c.Paths.LogDir,
		&c.Paths.OutputDir,
		&c.Telemetry.Path,
		&c.Enhance.ModelDir,
	} {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		*field, err = expandPath(trimmed)
		if err != nil {
			return err
		}
	}

	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	c.Fetch.Binary = strings.TrimSpace(c.Fetch.Binary)
	c.Enhance.Binary = strings.TrimSpace(c.Enhance.Binary)
	c.Telemetry.UserLabel = strings.TrimSpace(c.Telemetry.UserLabel)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	identities := make([]string, 0, len(c.Fetch.ClientIdentities))
	for _, id := range c.Fetch.ClientIdentities {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			identities = append(identities, trimmed)
		}
	}
	c.Fetch.ClientIdentities = identities

	return nil
}
