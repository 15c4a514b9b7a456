// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-tty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
)

// purgeAction deletes the instance databases of the selected network. The
// instance is addressed by data dir and genesis, other instances under the
// same data dir stay untouched.
func purgeAction(ctx *cli.Context) error {
	initLogger(ctx)
	gene := selectGenesis(ctx)

	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return errors.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}
	instanceDir := instanceDirPath(dataDir, gene)
	if _, err := os.Stat(instanceDir); os.IsNotExist(err) {
		fmt.Println("nothing to purge:", instanceDir)
		return nil
	}

	if !ctx.Bool(forceFlag.Name) {
		ok, err := confirm(fmt.Sprintf("Delete all data under [%v]?", instanceDir))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("aborted")
			return nil
		}
	}

	if err := os.RemoveAll(instanceDir); err != nil {
		return errors.Wrap(err, "remove instance dir")
	}
	fmt.Println("purged", instanceDir)
	return nil
}

// confirm asks the question on the controlling terminal and reads a single
// y/N keypress. Redirected stdio does not bypass it, use -force for that.
func confirm(question string) (bool, error) {
	t, err := tty.Open()
	if err != nil {
		return false, errors.Wrap(err, "open tty")
	}
	defer t.Close()

	fmt.Printf("%s [y/N] ", question)
	r, err := t.ReadRune()
	if err != nil {
		return false, err
	}
	fmt.Println(string(r))
	return r == 'y' || r == 'Y', nil
}
