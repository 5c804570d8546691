// Package environment tracks the execution stage (dev, staging, prod, ...)
// so that any package can branch on it without threading it through.
package environment

import "sync"

const (
	Dev     = "dev"
	Test    = "test"
	Staging = "staging"
	Prod    = "prod"
)

var (
	current = Test
	once    sync.Once
)

// SetCurrent should be called once at startup to record the current environment.
func SetCurrent(env string) {
	once.Do(func() {
		switch env {
		case Dev, Test, Staging, Prod:
			current = env
		default:
			panic("unknown environment: " + env)
		}
	})
}

func GetCurrent() string {
	return current
}

func IsTest() bool {
	return current == Test
}

func IsDev() bool {
	return current == Dev
}

func IsProd() bool {
	return current == Prod
}
