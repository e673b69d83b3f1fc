package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/igolaizola/rapbattle"
	"github.com/igolaizola/rapbattle/pkg/cmd/generate"
	"github.com/igolaizola/rapbattle/pkg/cmd/lyrics"
	"github.com/igolaizola/rapbattle/pkg/cmd/migrate"
	"github.com/igolaizola/rapbattle/pkg/cmd/process"
	"github.com/igolaizola/rapbattle/pkg/cmd/restore"
	"github.com/igolaizola/rapbattle/pkg/cmd/runs"
	"github.com/igolaizola/rapbattle/pkg/cmd/timeline"
	"github.com/igolaizola/rapbattle/pkg/elevenlabs"
	"github.com/igolaizola/rapbattle/pkg/ledger"
	"github.com/igolaizola/rapbattle/pkg/player"
	"github.com/igolaizola/rapbattle/pkg/sound/ffmpeg"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const envPrefix = "RAPBATTLE"

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("rapbattle", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "rapbattle [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newLyricsCommand(),
			newGenerateCommand(),
			newTimelineCommand(),
			newProcessCommand(),
			newSplitCommand(),
			newConvertCommand(),
			newCombineCommand(),
			newPlayCommand(),
			newMigrateCommand(),
			newRunsCommand(),
			newRestoreCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "rapbattle version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix(envPrefix),
	}
}

func addFiles(fs *flag.FlagSet, files *rapbattle.Files, names ...string) {
	defaults := rapbattle.DefaultFiles()
	*files = defaults
	for _, n := range names {
		switch n {
		case "lyrics":
			fs.StringVar(&files.Lyrics, "lyrics", defaults.Lyrics, "rap battle script file")
		case "original":
			fs.StringVar(&files.Original, "original", defaults.Original, "generated track file")
		case "metadata":
			fs.StringVar(&files.Metadata, "metadata", defaults.Metadata, "generation metadata file")
		case "first":
			fs.StringVar(&files.First, "first", defaults.First, "first half file (female section)")
		case "second":
			fs.StringVar(&files.Second, "second", defaults.Second, "second half file (male section)")
		case "converted":
			fs.StringVar(&files.Converted, "converted", defaults.Converted, "voice converted second half file")
		case "final":
			fs.StringVar(&files.Final, "final", defaults.Final, "final track file")
		}
	}
}

func addLedger(fs *flag.FlagSet, cfg *ledger.Config) {
	fs.StringVar(&cfg.DBType, "db-type", "", "db type to record runs (sqlite, mysql, postgres), empty disables it")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "", "file storage to archive artifacts (local, s3, telegram), empty disables it")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "folder for local, key:secret@bucket.region for s3, token@chat for telegram")
}

func apiKey() string {
	return os.Getenv("ELEVENLABS_API_KEY")
}

func newLyricsCommand() *ffcli.Command {
	cmd := "lyrics"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &lyrics.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Key, "openai-key", os.Getenv("OPENAI_API_KEY"), "openai api key")
	fs.StringVar(&cfg.Model, "openai-model", "", "openai chat model")
	fs.StringVar(&cfg.BaseURL, "openai-url", "", "openai compatible base url (optional)")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "http timeout (0 means no timeout)")
	fs.StringVar(&cfg.Topic, "topic", "", "topic of the battle")
	fs.StringVar(&cfg.Female, "female", "", "name of the female rapper")
	fs.StringVar(&cfg.Male, "male", "", "name of the male rapper")
	fs.StringVar(&cfg.Output, "lyrics", rapbattle.DefaultLyrics, "output lyrics file")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "draft a rap battle script with openai",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return lyrics.Run(ctx, cfg)
		},
	}
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &generate.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.APIKey, "api-key", apiKey(), "elevenlabs api key (defaults to ELEVENLABS_API_KEY)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "elevenlabs api base url (optional)")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "http timeout (0 means no timeout)")
	fs.IntVar(&cfg.Attempts, "attempts", 1, "attempts per api call on timeouts or rate limits")
	addFiles(fs, &cfg.Files, "lyrics", "original", "metadata")
	fs.Int64Var(&cfg.LengthMs, "length", generate.DefaultLengthMs, "track length in milliseconds")
	fs.StringVar(&cfg.Model, "model", elevenlabs.DefaultMusicModel, "music model")
	fs.StringVar(&cfg.OutputFormat, "output-format", elevenlabs.DefaultOutputFormat, "audio output format")
	fs.BoolVar(&cfg.Play, "play", true, "play the generated track")
	fs.StringVar(&cfg.TimelineCSV, "timeline-csv", "", "also write the timeline to this csv file")
	fs.BoolVar(&cfg.Tag, "tag", false, "write id3 tags with the lyrics")
	fs.StringVar(&cfg.Title, "title", "Rap Battle", "id3 title")
	fs.StringVar(&cfg.Artist, "artist", "", "id3 artist")
	addLedger(fs, &cfg.Ledger)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "generate the rap battle track from the lyrics",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg.Ledger.Debug = cfg.Debug
			cfg.Ledger.Proxy = cfg.Proxy
			return generate.Run(ctx, cfg)
		},
	}
}

func newTimelineCommand() *ffcli.Command {
	cmd := "timeline"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &timeline.Config{}
	fs.StringVar(&cfg.Metadata, "metadata", rapbattle.DefaultMetadata, "generation metadata file")
	fs.StringVar(&cfg.CSV, "timeline-csv", "", "also write the timeline to this csv file")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "print the composition plan timeline",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return timeline.Run(ctx, cfg)
		},
	}
}

// processFlags registers the flags of the voice processing commands.
func processFlags(fs *flag.FlagSet, cfg *process.Config, files ...string) {
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	addFiles(fs, &cfg.Files, files...)
	fs.StringVar(&cfg.Bitrate, "bitrate", ffmpeg.DefaultBitrate, "mp3 bitrate of the written files")
}

func convertFlags(fs *flag.FlagSet, cfg *process.Config) {
	fs.StringVar(&cfg.APIKey, "api-key", apiKey(), "elevenlabs api key (defaults to ELEVENLABS_API_KEY)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "elevenlabs api base url (optional)")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "http timeout (0 means no timeout)")
	fs.IntVar(&cfg.Attempts, "attempts", 1, "attempts per api call on timeouts or rate limits")
	fs.StringVar(&cfg.VoiceID, "voice", process.DefaultVoiceID, "target voice id of the second half")
	fs.StringVar(&cfg.Model, "model", elevenlabs.DefaultSTSModel, "speech to speech model")
	fs.StringVar(&cfg.OutputFormat, "output-format", elevenlabs.DefaultOutputFormat, "audio output format")
}

func combineFlags(fs *flag.FlagSet, cfg *process.Config) {
	fs.StringVar(&cfg.Wave, "wave", "", "write a waveform plot of the final track to this jpeg file")
	fs.BoolVar(&cfg.Tag, "tag", false, "write id3 tags with the lyrics")
	fs.StringVar(&cfg.Title, "title", "Rap Battle", "id3 title")
	fs.StringVar(&cfg.Artist, "artist", "", "id3 artist")
}

func newProcessCommand() *ffcli.Command {
	cmd := "process"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &process.Config{}
	processFlags(fs, cfg, "lyrics", "original", "metadata", "first", "second", "converted", "final")
	convertFlags(fs, cfg)
	combineFlags(fs, cfg)
	fs.Float64Var(&cfg.Ratio, "ratio", process.DefaultRatio, "split point as a fraction of the track")
	fs.BoolVar(&cfg.Play, "play", true, "play the final track")
	addLedger(fs, &cfg.Ledger)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "split, convert the second half and recombine the track",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg.Ledger.Debug = cfg.Debug
			cfg.Ledger.Proxy = cfg.Proxy
			return process.Run(ctx, cfg)
		},
	}
}

func newSplitCommand() *ffcli.Command {
	cmd := "split"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &process.Config{}
	processFlags(fs, cfg, "original", "first", "second")
	fs.Float64Var(&cfg.Ratio, "ratio", process.DefaultRatio, "split point as a fraction of the track")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "split the original track in two halves",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			_, err := process.Split(ctx, cfg)
			return rapbattle.WithHint(err, process.Hint)
		},
	}
}

func newConvertCommand() *ffcli.Command {
	cmd := "convert"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &process.Config{}
	processFlags(fs, cfg, "second", "converted")
	convertFlags(fs, cfg)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "convert the second half to the target voice",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return rapbattle.WithHint(process.Convert(ctx, cfg), process.Hint)
		},
	}
}

func newCombineCommand() *ffcli.Command {
	cmd := "combine"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &process.Config{}
	processFlags(fs, cfg, "lyrics", "first", "converted", "final")
	combineFlags(fs, cfg)
	fs.StringVar(&cfg.VoiceID, "voice", process.DefaultVoiceID, "voice id written to the id3 comment")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "join the first half and the converted second half",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return rapbattle.WithHint(process.Combine(ctx, cfg), process.Hint)
		},
	}
}

func newPlayCommand() *ffcli.Command {
	cmd := "play"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [file]", cmd),
		ShortHelp:  "play an audio file (defaults to the final track)",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			file := rapbattle.DefaultFinal
			switch len(args) {
			case 0:
			case 1:
				file = args[0]
			default:
				return errors.New("play: too many arguments")
			}
			return player.Play(ctx, file)
		},
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "create or upgrade the run ledger schema",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newRunsCommand() *ffcli.Command {
	cmd := "runs"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &runs.Config{}
	fs.StringVar(&cfg.Ledger.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.Ledger.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Kind, "kind", "", "only list runs of this kind (generate, process)")
	fs.IntVar(&cfg.Page, "page", 1, "page number")
	fs.IntVar(&cfg.Limit, "limit", 20, "runs per page")
	fs.StringVar(&cfg.Forget, "forget", "", "remove this run from the database instead of listing")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "list recorded runs",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return runs.Run(ctx, cfg)
		},
	}
}

func newRestoreCommand() *ffcli.Command {
	cmd := "restore"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &restore.Config{}
	fs.BoolVar(&cfg.Ledger.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Ledger.Proxy, "proxy", "", "proxy to use")
	addLedger(fs, &cfg.Ledger)
	fs.StringVar(&cfg.ID, "id", "", "run id to restore")
	fs.StringVar(&cfg.Dir, "dir", "", "output folder (defaults to the run id)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("rapbattle %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "download the archived files of a run",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return restore.Run(ctx, cfg)
		},
	}
}
