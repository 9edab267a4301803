package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/activity"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/behavior"
	"github.com/trezcool/madrasa/core/exam"
	"github.com/trezcool/madrasa/core/schedule"
	"github.com/trezcool/madrasa/storage/seed"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errRejected = errors.New("seed file has rejected records")
)

type commandLine struct {
	out  io.Writer
	conf *core.Config
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  token -name NAME [-prompt-secret] - issue a dashboard API token")
	fmt.Fprintln(cli.out, "  seedcheck -file PATH - validate a seed file without loading it")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenName := tokenCmd.String("name", "", "The name the token is issued to.")
	tokenPrompt := tokenCmd.Bool("prompt-secret", false, "Prompt for the signing secret instead of using the configured one.")

	seedCmd := flag.NewFlagSet("seedcheck", flag.ContinueOnError)
	seedCmd.SetOutput(cli.out)
	seedFile := seedCmd.String("file", "", "Path to the YAML seed file.")

	switch args[1] {
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		name := core.CleanString(*tokenName)
		if name == "" {
			tokenCmd.Usage()
			return errHelp
		}
		secret := cli.conf.SecretKey
		if *tokenPrompt {
			fmt.Fprint(cli.out, "Enter secret:")
			s, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if len(s) == 0 {
				tokenCmd.Usage()
				return errHelp
			}
			secret = string(s)
		}
		return cli.issueToken(name, secret)
	case "seedcheck":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *seedFile == "" {
			seedCmd.Usage()
			return errHelp
		}
		return cli.checkSeed(*seedFile)
	default:
		cli.printUsage()
		return errHelp
	}
}

// issueToken prints a token valid for the configured expiration delta.
func (cli *commandLine) issueToken(name, secret string) error {
	token, err := auth.GenerateToken(auth.NewClaims(name, cli.conf), secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

// checkSeed loads the seed file into throwaway stores and reports what would be rejected.
func (cli *commandLine) checkSeed(path string) error {
	f, err := seed.ReadFile(path)
	if err != nil {
		return err
	}

	validate, translator := core.NewValidator()
	report := seed.Load(f, seed.Stores{
		Activities: activity.NewStore(validate),
		Behavior:   behavior.NewStore(validate),
		Exams:      exam.NewStore(validate),
		Schedules:  schedule.NewStore(validate),
	})

	panels := make([]string, 0, len(report.Loaded))
	for panel := range report.Loaded {
		panels = append(panels, panel)
	}
	sort.Strings(panels)
	for _, panel := range panels {
		fmt.Fprintf(cli.out, "%s: %d ok\n", panel, report.Loaded[panel])
	}

	for _, r := range report.Rejected {
		fldErrs, ok := core.FieldErrors(r.Err, translator)
		if !ok {
			fmt.Fprintf(cli.out, "%s[%d]: %v\n", r.Panel, r.Index, r.Err)
			continue
		}
		fields := make([]string, 0, len(fldErrs))
		for fld := range fldErrs {
			fields = append(fields, fld)
		}
		sort.Strings(fields)
		for _, fld := range fields {
			fmt.Fprintf(cli.out, "%s[%d].%s: %s\n", r.Panel, r.Index, fld, fldErrs[fld])
		}
	}
	if len(report.Rejected) > 0 {
		return errRejected
	}
	return nil
}
