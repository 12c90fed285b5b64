package dispatch

import (
	"fmt"
	"strings"
)

// Kind of pipeline operation.
type Kind int

const (
	InstallDeps Kind = iota
	ConfigureSalt
	PreseedMaster
	Install
	PostInstall
	RestartDaemons
	CheckServices
	DaemonsRunning
)

var Kinds = []Kind{
	InstallDeps, ConfigureSalt, PreseedMaster, Install,
	PostInstall, RestartDaemons, CheckServices, DaemonsRunning,
}

var kindStrings = [...]string{
	"deps",
	"config_salt",
	"preseed_master",
	"install",
	"post_install",
	"restart_daemons",
	"check_services",
	"daemons_running",
}

func (k Kind) String() string {
	return kindStrings[k]
}

// Fallback is the name of the universal handler for kinds that have
// one. Most kinds are mandatory per distro and deliberately do not
// fall back past the distro-only variant.
func (k Kind) Fallback() string {
	switch k {
	case ConfigureSalt, PreseedMaster, CheckServices, DaemonsRunning:
		return k.String()
	}
	return ""
}

// InstallType is the installation channel.
type InstallType int

const (
	TypeNone InstallType = iota
	Stable
	Testing
	Daily
	Git
)

var InstallTypes = []InstallType{Stable, Testing, Daily, Git}

var installTypeStrings = [...]string{
	"",
	"stable",
	"testing",
	"daily",
	"git",
}

func NewInstallType(name string) (t InstallType, err error) {
	err = t.UnmarshalTOML([]byte(name))
	return
}

func (t InstallType) String() string {
	return installTypeStrings[t]
}

// UnmarshalTOML is for support github.com/naoina/toml
func (t *InstallType) UnmarshalTOML(data []byte) (err error) {
	name := strings.Trim(string(data), `"`)
	switch strings.ToLower(name) {
	case "stable":
		*t = Stable
	case "testing":
		*t = Testing
	case "daily":
		*t = Daily
	case "git":
		*t = Git
	case "":
		*t = TypeNone
	default:
		err = fmt.Errorf("install type %s is not supported", name)
	}
	return
}

// MarshalTOML is for support github.com/naoina/toml
func (t InstallType) MarshalTOML() (data []byte, err error) {
	data = []byte(`"` + t.String() + `"`)
	return
}

// Role of the installed node.
type Role int

const (
	Minion Role = iota
	Master
	Syndic
	Cloud
)

var Roles = []Role{Minion, Master, Syndic, Cloud}

var roleStrings = [...]string{
	"minion",
	"master",
	"syndic",
	"cloud",
}

func (r Role) String() string {
	return roleStrings[r]
}

// Daemon is the name of the service the role runs as, or empty for
// roles that have no daemon of their own.
func (r Role) Daemon() string {
	switch r {
	case Minion:
		return "salt-minion"
	case Master:
		return "salt-master"
	case Syndic:
		return "salt-syndic"
	}
	return ""
}
