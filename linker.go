package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xyproto/env/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultLinkTimeout bounds one run of the system linker driver
const DefaultLinkTimeout = 60 * time.Second

// entryStub is the C main linked around every generated object
const entryStub = `#include <stdio.h>

double calc_compute(void);

int main(void)
{
	printf("%f\n", calc_compute());
	return 0;
}
`

// defaultCC is $CC, or "cc"
func defaultCC() string {
	return env.Str("CC", "cc")
}

// Linker turns an object exporting calc_compute into an executable
type Linker struct {
	CC         string
	Timeout    time.Duration
	KeepObject bool
	log        *zap.Logger
}

func NewLinker(cc string, timeout time.Duration, keepObject bool, log *zap.Logger) *Linker {
	if cc == "" {
		cc = defaultCC()
	}
	if timeout <= 0 {
		timeout = DefaultLinkTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Linker{CC: cc, Timeout: timeout, KeepObject: keepObject, log: log}
}

// OutputPath appends the platform's executable suffix when missing
func OutputPath(path string, target Platform) string {
	suffix := target.ExeSuffix()
	if suffix != "" && !strings.HasSuffix(strings.ToLower(path), suffix) {
		return path + suffix
	}
	return path
}

// Link writes object and the entry stub to a private directory, links them
// and moves the result over outputPath. An existing file there is replaced.
func (l *Linker) Link(ctx context.Context, object []byte, outputPath string, target Platform) (_ *Artifact, err error) {
	if outputPath == "" {
		return nil, ioError("link", fmt.Errorf("empty output path"))
	}
	outputPath = OutputPath(outputPath, target)

	ccPath, lookErr := exec.LookPath(l.CC)
	if lookErr != nil {
		return nil, linkError(fmt.Sprintf("linker %q not found", l.CC), lookErr)
	}

	dir, mkErr := os.MkdirTemp("", "calcc-link-")
	if mkErr != nil {
		return nil, ioError("create temp directory", mkErr)
	}
	defer func() {
		err = multierr.Append(err, os.RemoveAll(dir))
	}()

	objPath := filepath.Join(dir, "calc.o")
	stubPath := filepath.Join(dir, "stub.c")
	if err := os.WriteFile(objPath, object, 0o644); err != nil {
		return nil, ioError("write object", err)
	}
	if err := os.WriteFile(stubPath, []byte(entryStub), 0o644); err != nil {
		return nil, ioError("write entry stub", err)
	}

	// Linking next to the destination keeps the final rename on one filesystem
	tmpOut := filepath.Join(filepath.Dir(outputPath), fmt.Sprintf(".%s-%s.tmp", filepath.Base(outputPath), uuid.NewString()))
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmpOut); rmErr != nil && !os.IsNotExist(rmErr) {
				err = multierr.Append(err, rmErr)
			}
		}
	}()

	linkCtx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()
	args := []string{"-o", tmpOut, stubPath, objPath, "-lm"}
	l.log.Debug("running linker", zap.String("cc", ccPath), zap.Strings("args", args))
	started := time.Now()
	output, runErr := exec.CommandContext(linkCtx, ccPath, args...).CombinedOutput()
	if runErr != nil {
		if linkCtx.Err() == context.DeadlineExceeded {
			return nil, linkError(fmt.Sprintf("linker timed out after %s", l.Timeout), runErr)
		}
		return nil, linkError(fmt.Sprintf("%s failed:\n%s", l.CC, strings.TrimRight(string(output), "\n")), runErr)
	}
	l.log.Debug("linked", zap.Duration("elapsed", time.Since(started)))

	if err := os.Rename(tmpOut, outputPath); err != nil {
		return nil, ioError("move executable into place", err)
	}
	if err := os.Chmod(outputPath, 0o755); err != nil {
		return nil, ioError("chmod executable", err)
	}
	if err := checkExecutable(outputPath); err != nil {
		return nil, ioError("check executable", err)
	}
	fi, statErr := os.Stat(outputPath)
	if statErr != nil {
		return nil, ioError("stat executable", statErr)
	}

	art := &Artifact{
		Path:   outputPath,
		Size:   fi.Size(),
		Target: target.String(),
	}
	if l.KeepObject {
		art.ObjectPath = outputPath + ".o"
		if err := os.WriteFile(art.ObjectPath, object, 0o644); err != nil {
			return nil, ioError("write object", err)
		}
	}
	return art, nil
}
