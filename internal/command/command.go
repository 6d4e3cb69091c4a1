// Package command implements the chat-facing "sovits" command: parsing a
// command line into text plus per-call overrides, and dispatching it to a
// Speaker.
package command

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/book-expert/sovits-service/internal/core"
	"github.com/book-expert/sovits-service/internal/sovits"
)

// Name is the command keyword.
const Name = "sovits"

const (
	usageLine   = "sovits <text>"
	description = "sovits语音合成帮助"
)

// Option names. Each option has a short flag and a long flag.
const (
	flagCharacterName    = "s"
	flagCharacterEmotion = "sr"
	flagTextLanguage     = "n"
	flagBatchSize        = "nw"
	flagSpeed            = "l"
	flagTopK             = "p"
	flagTopP             = "w"
	flagTemperature      = "la"
)

// Option descriptions.
const (
	descCharacterName    = "角色文件夹名称"
	descCharacterEmotion = "角色情感"
	descTextLanguage     = "文本语言"
	descBatchSize        = "一次性几个batch"
	descSpeed            = "语速"
	descTopK             = "GPT模型参数"
	descTopP             = "GPT模型参数"
	descTemperature      = "GPT模型参数"
)

// Static errors.
var (
	ErrNotSovitsCommand = errors.New("not a sovits command")
	ErrInvalidSyntax    = errors.New("invalid command syntax")
)

// Invocation is a parsed command line.
type Invocation struct {
	Text      string
	Overrides sovits.Overrides
	Help      bool
}

// Reply is the outcome of one command. At most one of Audio and Help is set;
// both empty means synthesis failed and the failure has been logged.
type Reply struct {
	Audio *sovits.Audio
	Help  string
}

// optionValues receives flag values while a command line is parsed.
type optionValues struct {
	characterName    optionalString
	characterEmotion optionalString
	textLanguage     optionalString
	batchSize        optionalInt
	speed            optionalFloat
	topK             optionalInt
	topP             optionalFloat
	temperature      optionalFloat
	help             bool
}

func newFlagSet(values *optionValues, output io.Writer) *flag.FlagSet {
	flags := flag.NewFlagSet(Name, flag.ContinueOnError)
	flags.SetOutput(output)

	bind := func(value flag.Value, short, long, desc string) {
		flags.Var(value, short, desc)
		flags.Var(value, long, desc)
	}

	bind(&values.characterName, flagCharacterName, "cha_name", descCharacterName)
	bind(&values.characterEmotion, flagCharacterEmotion, "character_emotion", descCharacterEmotion)
	bind(&values.textLanguage, flagTextLanguage, "text_language", descTextLanguage)
	bind(&values.batchSize, flagBatchSize, "batch_size", descBatchSize)
	bind(&values.speed, flagSpeed, "speed", descSpeed)
	bind(&values.topK, flagTopK, "top_k", descTopK)
	bind(&values.topP, flagTopP, "top_p", descTopP)
	bind(&values.temperature, flagTemperature, "temperature", descTemperature)
	flags.BoolVar(&values.help, "h", false, "显示帮助")
	flags.BoolVar(&values.help, "help", false, "显示帮助")

	return flags
}

// Parse parses a full command line, which must start with the command name.
// Only words that name a known option are interpreted; the text keeps its
// characters and spacing exactly as typed.
func Parse(line string) (Invocation, error) {
	words := splitLine(line)
	if len(words) == 0 || words[0].quoted || words[0].value != Name {
		return Invocation{}, ErrNotSovitsCommand
	}

	return parseWords(words[1:])
}

// ParseArgs parses arguments that were already split, such as a program's
// command-line arguments. Text words are joined with one space.
func ParseArgs(args []string) (Invocation, error) {
	words := make([]word, 0, len(args))
	for _, arg := range args {
		words = append(words, word{value: arg, gap: " "})
	}

	return parseWords(words)
}

// parseWords applies the options found in words and collects the rest as
// text. Words that start with "-" but name no option, such as "-5", are text.
// Text on either side of an option is joined with one space.
func parseWords(words []word) (Invocation, error) {
	var values optionValues

	flags := newFlagSet(&values, io.Discard)

	var text strings.Builder

	hasText := false
	afterText := false

	for i := 0; i < len(words); i++ {
		current := words[i]

		if !current.quoted {
			consumed, err := applyOption(flags, words, i)
			if err != nil {
				return Invocation{}, err
			}

			if consumed > 0 {
				i += consumed - 1
				afterText = false

				continue
			}
		}

		switch {
		case afterText:
			text.WriteString(current.gap)
		case hasText:
			text.WriteByte(' ')
		}

		text.WriteString(current.value)

		hasText = true
		afterText = true
	}

	invocation := Invocation{
		Text:      text.String(),
		Overrides: values.overrides(),
		Help:      values.help,
	}

	return invocation, nil
}

type boolFlag interface {
	IsBoolFlag() bool
}

// applyOption sets the option named by words[i], if any, and returns how
// many words it used.
func applyOption(flags *flag.FlagSet, words []word, i int) (int, error) {
	name, value, hasValue, ok := optionName(words[i].value)
	if !ok {
		return 0, nil
	}

	option := flags.Lookup(name)
	if option == nil {
		return 0, nil
	}

	consumed := 1

	if !hasValue {
		switch typed, isBool := option.Value.(boolFlag); {
		case isBool && typed.IsBoolFlag():
			value = "true"
		case i+1 == len(words):
			return 0, fmt.Errorf("%w: option -%s needs a value", ErrInvalidSyntax, name)
		default:
			value = words[i+1].value
			consumed = 2
		}
	}

	err := flags.Set(name, value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid value %q for option -%s: %w", ErrInvalidSyntax, value, name, err)
	}

	return consumed, nil
}

func (v *optionValues) overrides() sovits.Overrides {
	var overrides sovits.Overrides

	overrides.CharacterName = v.characterName.ptr()
	overrides.CharacterEmotion = v.characterEmotion.ptr()
	overrides.BatchSize = v.batchSize.ptr()
	overrides.Speed = v.speed.ptr()
	overrides.TopK = v.topK.ptr()
	overrides.TopP = v.topP.ptr()
	overrides.Temperature = v.temperature.ptr()

	if language := v.textLanguage.ptr(); language != nil {
		tag := sovits.Language(*language)
		overrides.TextLanguage = &tag
	}

	return overrides
}

// Help returns the usage text shown when the command gets no text.
func Help() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n%s\n\n可用的选项有：\n", usageLine, description)

	var values optionValues

	flags := newFlagSet(&values, &buf)

	shortNames := []string{
		flagCharacterName,
		flagCharacterEmotion,
		flagTextLanguage,
		flagBatchSize,
		flagSpeed,
		flagTopK,
		flagTopP,
		flagTemperature,
	}

	for _, short := range shortNames {
		option := flags.Lookup(short)
		fmt.Fprintf(&buf, "  -%s  %s\n", option.Name, option.Usage)
	}

	fmt.Fprintf(&buf, "\n%s: %s\n", descTextLanguage, joinLanguages())

	return buf.String()
}

func joinLanguages() string {
	names := make([]string, 0, len(sovits.Languages))
	for _, language := range sovits.Languages {
		names = append(names, string(language))
	}

	return strings.Join(names, " ")
}

// Handler executes sovits commands against a Speaker.
type Handler struct {
	speaker core.Speaker
}

// NewHandler creates a Handler for speaker.
func NewHandler(speaker core.Speaker) *Handler {
	return &Handler{speaker: speaker}
}

// Execute parses line and runs it. Only a malformed command line is an error.
func (h *Handler) Execute(ctx context.Context, line string) (Reply, error) {
	invocation, err := Parse(line)
	if err != nil {
		return Reply{}, err
	}

	if invocation.Help {
		return Reply{Help: Help()}, nil
	}

	return h.Invoke(ctx, invocation.Text, invocation.Overrides), nil
}

// Invoke runs an already-parsed command. Empty text yields the help text and
// never reaches the Speaker.
func (h *Handler) Invoke(ctx context.Context, text string, overrides sovits.Overrides) Reply {
	if text == "" {
		return Reply{Help: Help()}
	}

	return Reply{Audio: h.speaker.Say(ctx, text, overrides)}
}
