package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rickchristie/infill"
	"github.com/rickchristie/infill/settings"
)

// runConfig implements "infill config". Subcommands:
//
//	path                print the settings file location
//	list                print every key and value
//	get KEY             print one value
//	set KEY VALUE       change one value and save (validated)
func runConfig(store *settings.Store, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("config: missing subcommand (path, list, get, set)")
	}

	switch args[0] {
	case "path":
		fmt.Fprintln(out, store.Path())
		return nil

	case "list":
		current, err := store.Load()
		if err != nil {
			return err
		}
		for _, key := range settings.Keys() {
			value, _ := settings.Get(current, key)
			fmt.Fprintf(out, "%s%s%s: %s\n", colorCyan, key, colorReset, display(key, value))
		}
		return nil

	case "get":
		if len(args) != 2 {
			return errors.New("usage: infill config get KEY")
		}
		current, err := store.Load()
		if err != nil {
			return err
		}
		value, err := settings.Get(current, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, display(args[1], value))
		return nil

	case "set":
		if len(args) != 3 {
			return errors.New("usage: infill config set KEY VALUE")
		}
		key, value := args[1], args[2]
		updated, err := store.Update(func(s *infill.Settings) error {
			return settings.Set(s, key, value)
		})
		if err != nil {
			return err
		}
		shown, _ := settings.Get(updated, key)
		fmt.Fprintf(out, "%sSaved%s %s = %s\n", colorGreen, colorReset, key, display(key, shown))
		return nil

	default:
		return fmt.Errorf("config: unknown subcommand %q", args[0])
	}
}

func display(key, value string) string {
	if strings.EqualFold(key, settings.KeyAPIKey) {
		return settings.Redact(value)
	}
	return value
}
