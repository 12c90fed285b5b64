package shell

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// Run a command on the host and log its output at debug level. The
// combined output is returned so callers can parse it or attach it
// to errors.
func Run(name string, args ...string) (output string, err error) {
	cmd := exec.Command(name, args...)
	log.Debug().Msgf("%v", cmd)

	rawOutput, err := cmd.CombinedOutput()
	output = string(rawOutput)
	if err != nil {
		err = fmt.Errorf("%v: %s", err, rawOutput)
		return
	}

	return
}

// RunEnv is Run with extra environment variables on top of the
// current process environment (e.g. DEBIAN_FRONTEND=noninteractive).
func RunEnv(env []string, name string, args ...string) (output string, err error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	log.Debug().Msgf("%v (env %v)", cmd, env)

	rawOutput, err := cmd.CombinedOutput()
	output = string(rawOutput)
	if err != nil {
		err = fmt.Errorf("%v: %s", err, rawOutput)
		return
	}

	return
}

// RunIn is Run with the working directory set.
func RunIn(dir, name string, args ...string) (output string, err error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	log.Debug().Msgf("%v (in %s)", cmd, dir)

	rawOutput, err := cmd.CombinedOutput()
	output = string(rawOutput)
	if err != nil {
		err = fmt.Errorf("%v: %s", err, rawOutput)
		return
	}

	return
}

// Available reports whether the command can be found in PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
