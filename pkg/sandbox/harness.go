// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package sandbox

import "fmt"

// Guest protocol: the skill blob defines a single entry point named
// execute. The harness reads the inputs document from stdin, calls
// execute, and prints the result envelope as the final stdout line.
// Serialization failures are reported with kind marshalling_failed so
// the host can distinguish them from guest exceptions.

const pythonHarness = `import json, sys, traceback

_src = open(sys.argv[1], "r", encoding="utf-8").read()
exec(compile(_src, "skill.py", "exec"), globals())

def _emit(doc):
    sys.stdout.write("\n" + json.dumps(doc) + "\n")
    sys.stdout.flush()

_raw = sys.stdin.read()
_inputs = json.loads(_raw) if _raw.strip() else {}
if _inputs is None:
    _inputs = {}

try:
    _value = execute(_inputs)
except Exception:
    _emit({"ok": False, "error": "execute raised", "traceback": traceback.format_exc()})
    sys.exit(0)

try:
    _emit({"ok": True, "value": _value})
except (TypeError, ValueError) as e:
    _emit({"ok": False, "kind": "marshalling_failed", "error": str(e)})
`

const nodeHarness = `const fs = require("fs");

const src = fs.readFileSync(process.argv[2], "utf8");
(0, eval)(src + "\nglobalThis.__execute = typeof execute === 'function' ? execute : undefined;");

function emit(doc) {
    process.stdout.write("\n" + JSON.stringify(doc) + "\n");
}

const raw = fs.readFileSync(0, "utf8");
let inputs = raw.trim() ? JSON.parse(raw) : {};
if (inputs === null) inputs = {};

if (typeof globalThis.__execute !== "function") {
    emit({ ok: false, error: "skill does not define execute" });
    process.exit(0);
}

Promise.resolve()
    .then(() => globalThis.__execute(inputs))
    .then((value) => {
        try {
            emit({ ok: true, value: value === undefined ? null : value });
        } catch (e) {
            emit({ ok: false, kind: "marshalling_failed", error: String(e) });
        }
    })
    .catch((err) => {
        emit({ ok: false, error: String(err), traceback: err && err.stack ? err.stack : "" });
    });
`

// goHarness is compiled alongside the skill source with "go run". The
// blob must be package main and define
// execute(inputs map[string]interface{}) (interface{}, error).
const goHarness = `package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

func emit(doc map[string]interface{}) {
	b, err := json.Marshal(doc)
	if err != nil {
		b, _ = json.Marshal(map[string]interface{}{
			"ok": false, "kind": "marshalling_failed", "error": err.Error(),
		})
	}
	fmt.Printf("\n%s\n", b)
}

func main() {
	raw, _ := io.ReadAll(os.Stdin)
	inputs := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &inputs); err != nil || inputs == nil {
			inputs = map[string]interface{}{}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			emit(map[string]interface{}{
				"ok": false, "error": fmt.Sprint(r), "traceback": string(debug.Stack()),
			})
		}
	}()

	value, err := execute(inputs)
	if err != nil {
		emit(map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	emit(map[string]interface{}{"ok": true, "value": value})
}
`

// harnessFor returns the harness source and filenames for a language.
func harnessFor(language string) (harnessFile, skillFile, harnessSource string, err error) {
	switch language {
	case "python":
		return "__harness__.py", "skill.py", pythonHarness, nil
	case "typescript":
		return "__harness__.js", "skill.js", nodeHarness, nil
	case "go":
		return "harness.go", "skill.go", goHarness, nil
	default:
		return "", "", "", fmt.Errorf("unsupported language: %s", language)
	}
}
