// Package config manages YAML-based site configuration and CLI flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the site source directory.
const FileName = "inlineh.yaml"

// LayoutDir holds user layouts in the site source, selected by the
// "layout" front matter key. It is excluded from the output.
const LayoutDir = "_layouts"

// Commands understood by the CLI.
const (
	CommandBuild = "build"
	CommandServe = "serve"
	CommandInit  = "init"
)

// Config holds all configuration options for a site
type Config struct {
	// Command is the subcommand being run. It is never read from a file.
	Command string `yaml:"-"`

	// Title is exposed to templates as site.title.
	Title string `yaml:"title,omitempty"`

	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`

	// EmbedDir is the base directory, relative to Source, that the embed
	// tag resolves file names against.
	EmbedDir string `yaml:"embed_dir"`

	// TagName is the name the embed tag is registered under.
	TagName string `yaml:"tag"`

	Style      string `yaml:"style"`
	UseClasses bool   `yaml:"use_classes"`

	// GitRef, when set, renders the source tree as of this ref
	// instead of the working directory.
	GitRef string `yaml:"git_ref,omitempty"`

	Port       int      `yaml:"port"`
	Watch      bool     `yaml:"watch"`
	Open       bool     `yaml:"open"`
	Extensions []string `yaml:"extensions"`
	Exclude    []string `yaml:"exclude"`

	// Internal: path to config file for saving
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Command:     CommandBuild,
		Source:      ".",
		Destination: "_site",
		EmbedDir:    "html",
		TagName:     "inlineh",
		Style:       "monokai",
		UseClasses:  true,
		Port:        4000,
		Watch:       true,
		Open:        false,
		Extensions:  []string{".md", ".markdown"},
		Exclude:     []string{"_*", ".*", "node_modules", FileName},
	}
}

// Load builds the configuration from the source directory's config file
// and command line args. args excludes the program name. Flags that are set
// explicitly override values from the file.
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case CommandBuild, CommandServe, CommandInit:
			cfg.Command = args[0]
			args = args[1:]
		default:
			return nil, fmt.Errorf("unknown command %q", args[0])
		}
	}

	flags := flag.NewFlagSet("inlineh "+cfg.Command, flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		configFile string
		fromFlags  = *cfg
	)
	flags.StringVar(&fromFlags.Source, "source", "", "Site source directory")
	flags.StringVar(&fromFlags.Source, "s", "", "Site source directory (shorthand)")
	flags.StringVar(&fromFlags.Destination, "destination", "", "Output directory")
	flags.StringVar(&fromFlags.Destination, "d", "", "Output directory (shorthand)")
	flags.StringVar(&fromFlags.EmbedDir, "embed-dir", "", "Base directory for embedded files")
	flags.StringVar(&fromFlags.TagName, "tag", "", "Name of the embed tag")
	flags.StringVar(&fromFlags.Style, "style", "", "Chroma highlighting style")
	flags.BoolVar(&fromFlags.UseClasses, "classes", true, "Highlight with CSS classes")
	flags.StringVar(&fromFlags.GitRef, "git-ref", "", "Render the source as of this git ref")
	flags.IntVar(&fromFlags.Port, "port", 0, "HTTP server port")
	flags.BoolVar(&fromFlags.Watch, "watch", true, "Rebuild on file changes")
	flags.BoolVar(&fromFlags.Open, "open", false, "Open browser on startup")
	flags.StringVar(&configFile, "config", "", "Configuration file path")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}

	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	source := cfg.Source
	if set["source"] || set["s"] {
		source = fromFlags.Source
	}

	// Determine config file path
	cfgPath := configFile
	if cfgPath == "" {
		cfgPath = filepath.Join(source, FileName)
	}
	if err := cfg.loadFromFile(cfgPath); err != nil {
		// Only fail if the user explicitly specified the config file
		if configFile != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", cfgPath, err)
		}
	}
	cfg.configPath = cfgPath

	// Command line flags override config file (only if explicitly set)
	switch {
	case set["source"] || set["s"]:
		cfg.Source = source
	case configFile != "":
		// A source in an explicit config file is relative to that file
		if !filepath.IsAbs(cfg.Source) {
			cfg.Source = filepath.Join(filepath.Dir(configFile), cfg.Source)
		}
	default:
		cfg.Source = source
	}
	if set["destination"] || set["d"] {
		cfg.Destination = fromFlags.Destination
	}
	if set["embed-dir"] {
		cfg.EmbedDir = fromFlags.EmbedDir
	}
	if set["tag"] {
		cfg.TagName = fromFlags.TagName
	}
	if set["style"] {
		cfg.Style = fromFlags.Style
	}
	if set["classes"] {
		cfg.UseClasses = fromFlags.UseClasses
	}
	if set["git-ref"] {
		cfg.GitRef = fromFlags.GitRef
	}
	if set["port"] {
		cfg.Port = fromFlags.Port
	}
	if set["watch"] {
		cfg.Watch = fromFlags.Watch
	}
	if set["open"] {
		cfg.Open = fromFlags.Open
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// resolvePaths makes Source absolute and resolves a relative Destination
// against Source.
func (c *Config) resolvePaths() error {
	src, err := filepath.Abs(c.Source)
	if err != nil {
		return err
	}
	c.Source = src

	if !filepath.IsAbs(c.Destination) {
		c.Destination = filepath.Join(c.Source, c.Destination)
	}
	return nil
}

// Validate reports settings that cannot produce a site.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.TagName) == "" || strings.ContainsAny(c.TagName, " \t\n"):
		return fmt.Errorf("invalid tag name %q", c.TagName)
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case filepath.Clean(c.Destination) == filepath.Clean(c.Source):
		return errors.New("destination must differ from source")
	}
	return nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Save writes the current configuration to the config file
func (c *Config) Save() error {
	// Ensure config directory exists
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// Paths are saved relative to the config file so the site stays portable
	saveConfig := *c
	saveConfig.Source = "."
	if rel, err := filepath.Rel(c.Source, c.Destination); err == nil {
		saveConfig.Destination = filepath.ToSlash(rel)
	}

	data, err := yaml.Marshal(&saveConfig)
	if err != nil {
		return err
	}

	return os.WriteFile(c.configPath, data, 0644)
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}

// DestinationRel returns Destination relative to Source in slash form,
// or "" if the destination is outside the source tree.
func (c *Config) DestinationRel() string {
	rel, err := filepath.Rel(c.Source, c.Destination)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}

// SiteVars returns the variables exposed to templates as "site".
func (c *Config) SiteVars() map[string]any {
	return map[string]any{
		"title":     c.Title,
		"embed_dir": c.EmbedDir,
		"git_ref":   c.GitRef,
	}
}

// IsExcluded checks if a path should be excluded
func (c *Config) IsExcluded(path string) bool {
	base := filepath.Base(path)
	for _, exclude := range c.Exclude {
		if matched, _ := filepath.Match(exclude, base); matched {
			return true
		}
	}
	return false
}

// IsMarkdownFile checks if a file has a markdown extension
func (c *Config) IsMarkdownFile(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range c.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
