package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli"

	"vscpu/vscpu"
	"vscpu/vscpu/memdump"
	"vscpu/vscpu/replui"
)

const (
	resultsDir = "tests/results"
	insDir     = "tests/ins"
	doutsDir   = "tests/douts"
	houtsDir   = "tests/houts"
	findFile   = "tests/find.json"
)

func main() {
	app := cli.NewApp()
	app.Name = "vscpu"
	app.Usage = "VSCPU assembler, interpreter and test oracle"
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "assemble",
			Usage:     "lower and encode tests/results/<name>.asm into tests/ins/<name>.in",
			ArgsUsage: "name",
			Action:    cmdAssemble,
		},
		{
			Name:      "run",
			Usage:     "load tests/ins/<name>.in and execute it",
			ArgsUsage: "name [r|q]",
			Action:    cmdRun,
		},
		{
			Name:      "check",
			Usage:     "run the test oracle against tests/douts/<name>.dout",
			ArgsUsage: "name",
			Action:    cmdCheck,
		},
		{
			Name:      "all",
			Usage:     "assemble, run, then check in sequence",
			ArgsUsage: "name [r|q]",
			Action:    cmdAll,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cmdAssemble(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("missing program name", 1)
	}
	return assemble(name)
}

func assemble(name string) error {
	asmPath := filepath.Join(resultsDir, name+".asm")
	raw, err := readLines(asmPath)
	if err != nil {
		return cli.Exit(err, 1)
	}

	lowered, err := vscpu.Lower(raw, vscpu.DefaultOptions())
	if err != nil {
		return cli.Exit(fmt.Sprintf("lowering %s: %v", asmPath, err), 1)
	}

	entries, err := vscpu.EncodeProgram(lowered)
	if err != nil {
		return cli.Exit(fmt.Sprintf("encoding %s: %v", asmPath, err), 1)
	}

	if err := os.MkdirAll(insDir, 0o755); err != nil {
		return cli.Exit(err, 1)
	}
	inPath := filepath.Join(insDir, name+".in")
	if err := vscpu.WriteLoaderFile(inPath, entries); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func cmdRun(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("missing program name", 1)
	}
	mode := c.Args().Get(1)
	return run(name, mode)
}

func run(name, mode string) error {
	inPath := filepath.Join(insDir, name+".in")
	mem := vscpu.NewMemory()
	if err := mem.Load(inPath); err != nil {
		return cli.Exit(err, 1)
	}

	vm := vscpu.NewInterpreter(mem)

	if mode == "" {
		fmt.Print("run interactively (r) or to completion (q)? ")
		fmt.Scanln(&mode)
	}

	switch mode {
	case "r":
		if _, err := replui.New(vm, mem).Run(); err != nil {
			return cli.Exit(err, 1)
		}
	default:
		vm.Run()
		if vm.LastFault != nil {
			fmt.Fprintln(os.Stderr, memdump.Summary(vm))
		}
	}

	if err := os.MkdirAll(doutsDir, 0o755); err != nil {
		return cli.Exit(err, 1)
	}
	if err := os.MkdirAll(houtsDir, 0o755); err != nil {
		return cli.Exit(err, 1)
	}
	if err := mem.DumpDecimal(filepath.Join(doutsDir, name+".dout")); err != nil {
		return cli.Exit(err, 1)
	}
	if err := mem.DumpHex(filepath.Join(houtsDir, name+".hout")); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func cmdCheck(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("missing program name", 1)
	}
	return check(name)
}

func check(name string) error {
	cases, err := vscpu.LoadCases(findFile)
	if err != nil {
		return cli.Exit(err, 1)
	}

	doutPath := filepath.Join(doutsDir, name+".dout")
	allPass := true
	for i := range cases {
		if cases[i].Name != name {
			continue
		}
		pass, err := vscpu.Check(&cases[i], doutPath)
		if err != nil {
			return cli.Exit(err, 1)
		}
		allPass = allPass && pass
	}

	if err := vscpu.SaveCases(findFile, cases); err != nil {
		return cli.Exit(err, 1)
	}
	if !allPass {
		return cli.Exit(fmt.Sprintf("%s: one or more checks failed", name), 1)
	}
	return nil
}

func cmdAll(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("missing program name", 1)
	}
	mode := c.Args().Get(1)

	if err := assemble(name); err != nil {
		return err
	}
	if err := run(name, mode); err != nil {
		return err
	}
	return check(name)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), "\n"), nil
}
