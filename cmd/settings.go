package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/fmx/internal/repositories"
	"github.com/desertthunder/fmx/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func (r *Runner) options() (*repositories.OptionRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewOptionRepository(db), nil
}

func settingKey(cmd *cli.Command) (string, error) {
	key := strings.TrimSpace(cmd.StringArg("key"))
	if key == "" {
		return "", fmt.Errorf("%w: key", shared.ErrMissingArgument)
	}
	if !repositories.IsSettingKey(key) {
		return "", fmt.Errorf("%w: unknown setting %q (expected one of %s)", shared.ErrInvalidArgument, key, strings.Join(repositories.SettingKeys, ", "))
	}
	return key, nil
}

// maskSecret hides all but the last four characters of an API key.
func maskSecret(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

// SettingsList prints stored settings. Internal keys are hidden unless --all is set.
func (r *Runner) SettingsList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.options()
	if err != nil {
		return err
	}

	opts, err := repo.List("")
	if err != nil {
		return err
	}

	all := cmd.Bool("all")
	shown := 0
	for _, opt := range opts {
		if !all && !repositories.IsSettingKey(opt.Key) {
			continue
		}

		value := opt.Value
		switch opt.Key {
		case repositories.KeyLastFMAPIKey:
			value = maskSecret(value)
		case repositories.KeyRecentAlbums, repositories.KeyLastSync:
			value = fmt.Sprintf("(%d bytes)", len(value))
		}

		r.writePlain("%-18s %s  (updated %s)\n", opt.Key, value, humanize.Time(opt.UpdatedAt))
		shown++
	}

	if shown == 0 {
		r.writePlain("No settings stored\n")
	}
	return nil
}

// SettingsGet prints a single stored value.
func (r *Runner) SettingsGet(ctx context.Context, cmd *cli.Command) error {
	key, err := settingKey(cmd)
	if err != nil {
		return err
	}

	repo, err := r.options()
	if err != nil {
		return err
	}

	value, err := repo.Get(key)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: setting %s is not stored", shared.ErrNotFound, key)
	} else if err != nil {
		return err
	}

	return r.writePlain("%s\n", value)
}

// SettingsSet stores a value for a user-settable key.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	key, err := settingKey(cmd)
	if err != nil {
		return err
	}

	value := strings.TrimSpace(cmd.StringArg("value"))
	if value == "" {
		return fmt.Errorf("%w: value", shared.ErrMissingArgument)
	}

	repo, err := r.options()
	if err != nil {
		return err
	}

	if err := repo.Put(key, value); err != nil {
		return err
	}

	r.logger.Debug("setting stored", "key", key)
	return r.writePlain("✓ Stored %s\n", key)
}

// SettingsUnset removes a stored value so the configured one applies again.
func (r *Runner) SettingsUnset(ctx context.Context, cmd *cli.Command) error {
	key, err := settingKey(cmd)
	if err != nil {
		return err
	}

	repo, err := r.options()
	if err != nil {
		return err
	}

	if err := repo.Delete(key); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	return r.writePlain("✓ Removed %s\n", key)
}
