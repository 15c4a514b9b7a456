// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewards

import (
	"github.com/dop251/goja"
	"github.com/pkg/errors"

	"github.com/meridianchain/meridian/meridian"
	"github.com/meridianchain/meridian/xenv"
)

// NewScriptUptime compiles a JS expression into an UptimeFn, letting
// operators swap the uptime curve without a rebuild. The script sees the
// bindings blocks, slashes, expected and penalty, and must evaluate to the
// uptime numerator in basis points. The result is clamped to [0, BpsDenom];
// a runtime error falls back to DefaultUptime.
func NewScriptUptime(src string) (UptimeFn, error) {
	prog, err := goja.Compile("uptime", src, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile uptime script")
	}
	return func(blocks, slashes uint64, tun *xenv.Tunables) Uptime {
		// goja runtimes are not safe for reuse across goroutines
		vm := goja.New()
		vm.Set("blocks", blocks)
		vm.Set("slashes", slashes)
		vm.Set("expected", tun.ExpectedBlocks)
		vm.Set("penalty", tun.SlashUptimePenalty)

		val, err := vm.RunProgram(prog)
		if err != nil {
			return DefaultUptime(blocks, slashes, tun)
		}
		num := val.ToInteger()
		if num < 0 {
			num = 0
		}
		if num > meridian.BpsDenom {
			num = meridian.BpsDenom
		}
		return Uptime{Num: uint64(num), Den: meridian.BpsDenom}
	}, nil
}
