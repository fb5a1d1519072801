package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

var putCommand = &cli.Command{
	Name:      "put",
	Usage:     "store a file under a key",
	ArgsUsage: "<key> <path>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.Exit("put requires exactly two arguments: <key> <path>", 1)
		}
		key, path := ctx.Args().Get(0), ctx.Args().Get(1)

		c, err := openCache(ctx)
		if err != nil {
			return cli.Exit(err, 1)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if err := c.InsertBytes(key, data); err != nil {
			return cli.Exit(err, 1)
		}

		fmt.Fprintf(ctx.App.Writer, "stored %q (%d bytes)\n", key, len(data))
		return nil
	},
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "write a cached entry to a file, or to stdout if <path> is omitted",
	ArgsUsage: "<key> [path]",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 && ctx.NArg() != 2 {
			return cli.Exit("get requires one or two arguments: <key> [path]", 1)
		}
		key := ctx.Args().Get(0)

		c, err := openCache(ctx)
		if err != nil {
			return cli.Exit(err, 1)
		}

		rc, err := c.Get(key)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer rc.Close()

		var out io.Writer = ctx.App.Writer
		if ctx.NArg() == 2 {
			f, err := os.Create(ctx.Args().Get(1))
			if err != nil {
				return cli.Exit(err, 1)
			}
			defer f.Close()
			out = f
		}

		if _, err := io.Copy(out, rc); err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	},
}

var rmCommand = &cli.Command{
	Name:      "rm",
	Usage:     "remove a key",
	ArgsUsage: "<key>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("rm requires exactly one argument: <key>", 1)
		}
		key := ctx.Args().Get(0)

		c, err := openCache(ctx)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if err := c.Remove(key); err != nil {
			return cli.Exit(err, 1)
		}

		fmt.Fprintf(ctx.App.Writer, "removed %q\n", key)
		return nil
	},
}

var statCommand = &cli.Command{
	Name:  "stat",
	Usage: "print cache size, entry count and capacity",
	Action: func(ctx *cli.Context) error {
		c, err := openCache(ctx)
		if err != nil {
			return cli.Exit(err, 1)
		}

		fmt.Fprintf(ctx.App.Writer, "dir:      %s\n", c.Path())
		fmt.Fprintf(ctx.App.Writer, "entries:  %d\n", c.Len())
		fmt.Fprintf(ctx.App.Writer, "size:     %d bytes\n", c.Size())
		fmt.Fprintf(ctx.App.Writer, "capacity: %d bytes\n", c.Capacity())
		return nil
	},
}

var lsCommand = &cli.Command{
	Name:      "ls",
	Usage:     "report whether a key is present",
	ArgsUsage: "<key>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("ls requires exactly one argument: <key>", 1)
		}
		key := ctx.Args().Get(0)

		c, err := openCache(ctx)
		if err != nil {
			return cli.Exit(err, 1)
		}

		if !c.ContainsKey(key) {
			return cli.Exit(errors.New("not found"), 1)
		}
		fmt.Fprintf(ctx.App.Writer, "%q is present\n", key)
		return nil
	},
}
