package conf

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPageBudget    = 10
	DefaultPageSize      = 50
	DefaultNameCacheSize = 4096
	DefaultQueueSize     = 100
)

var Conf Config

type Config struct {
	Room    []Room  `yaml:"room"`
	Slack   Slack   `yaml:"slack"`
	Discord Discord `yaml:"discord"`
	Matrix  Matrix  `yaml:"matrix"`
	Bot     Bot     `yaml:"bot"`

	slackChat   []string `yaml:"-"`
	discordChat []string `yaml:"-"`
	matrixChat  []string `yaml:"-"`
}

type Room struct {
	Name string     `yaml:"name"`
	Chat []RoomChat `yaml:"chat"`
}

type RoomChat struct {
	Type   string   `yaml:"type"`
	ChatID []string `yaml:"chatID"`
}

type Matrix struct {
	Host            string `yaml:"host"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	CryptoStorePath string `yaml:"cryptoStorePath"`
	PickleKey       string `yaml:"pickleKey"`
	DownloadMedia   bool   `yaml:"downloadMedia"`
	MaxMediaBytes   int64  `yaml:"maxMediaBytes"`
	PageSize        int    `yaml:"-"`
}

type Discord struct {
	Token string `yaml:"token"`
}

type Slack struct {
	Token         string `yaml:"token"`
	AppLevelToken string `yaml:"appLevelToken"`
}

// Bot tunes context building. MentionTokens are plain words that address the
// bot in addition to its platform user IDs.
type Bot struct {
	MentionTokens []string `yaml:"mentionTokens"`
	PageBudget    int      `yaml:"pageBudget"`
	PageSize      int      `yaml:"pageSize"`
	NameCacheSize int      `yaml:"nameCacheSize"`
	QueueSize     int      `yaml:"queueSize"`
}

var path *string

func init() {
	path = flag.String("conf", "conf/config.yml", "configuration file path")
}

func InitConf(_ context.Context) {
	if !flag.Parsed() {
		flag.Parse()
	}
	c, err := Load(*path)
	if err != nil {
		log.Fatal().Err(err).Str("path", *path).Msg("failed to load configuration")
	}
	Conf = c
	log.Info().
		Int("rooms", len(c.Room)).
		Int("pageBudget", c.Bot.PageBudget).
		Int("pageSize", c.Bot.PageSize).
		Int("nameCacheSize", c.Bot.NameCacheSize).
		Msg("config loaded")
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("open configuration file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, fills defaults and checks that every chat
// type referenced by a room has its credentials.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse configuration file: %w", err)
	}
	c.applyDefaults()
	for _, r := range c.Room {
		for _, chat := range r.Chat {
			switch chat.Type {
			case "slack":
				c.slackChat = append(c.slackChat, chat.ChatID...)
			case "discord":
				c.discordChat = append(c.discordChat, chat.ChatID...)
			case "matrix":
				c.matrixChat = append(c.matrixChat, chat.ChatID...)
			default:
				return Config{}, fmt.Errorf("room %q: unknown chat type %q", r.Name, chat.Type)
			}
		}
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Bot.PageBudget <= 0 {
		c.Bot.PageBudget = DefaultPageBudget
	}
	if c.Bot.PageSize <= 0 {
		c.Bot.PageSize = DefaultPageSize
	}
	if c.Bot.NameCacheSize <= 0 {
		c.Bot.NameCacheSize = DefaultNameCacheSize
	}
	if c.Bot.QueueSize <= 0 {
		c.Bot.QueueSize = DefaultQueueSize
	}
	c.Matrix.PageSize = c.Bot.PageSize
}

func (c *Config) validate() error {
	var errs []error
	if len(c.slackChat) != 0 && (len(c.Slack.Token) == 0 || len(c.Slack.AppLevelToken) == 0) {
		errs = append(errs, errors.New("needs to configure slack token"))
	}
	if len(c.discordChat) != 0 && len(c.Discord.Token) == 0 {
		errs = append(errs, errors.New("needs to configure discord token"))
	}
	if len(c.matrixChat) != 0 && (len(c.Matrix.Host) == 0 || len(c.Matrix.User) == 0 || len(c.Matrix.Password) == 0) {
		errs = append(errs, errors.New("needs to configure matrix host and credentials"))
	}
	if len(c.Matrix.CryptoStorePath) != 0 && len(c.Matrix.PickleKey) == 0 {
		errs = append(errs, errors.New("matrix crypto store requires a pickle key"))
	}
	return errors.Join(errs...)
}

func (c Config) GetSlackChat() []string {
	return c.slackChat
}

func (c Config) GetDiscordChat() []string {
	return c.discordChat
}

func (c Config) GetMatrixChat() []string {
	return c.matrixChat
}
