// Package validate registers the custom binding rules used by request DTOs.
package validate

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/auth"
)

var (
	hhmmPattern      = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

	once sync.Once
)

// IsHHMM reports whether s is a 24h HH:mm time.
func IsHHMM(s string) bool {
	return hhmmPattern.MatchString(s)
}

// IsSubdomain reports whether s is a lowercase DNS label of 3 to 50 characters.
func IsSubdomain(s string) bool {
	return len(s) >= 3 && len(s) <= 50 && subdomainPattern.MatchString(s)
}

// Register installs custom rules on gin's validator. Safe to call repeatedly.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return IsHHMM(fl.Field().String())
		})
		_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return auth.IsStrongPassword(fl.Field().String())
		})
		_ = v.RegisterValidation("subdomain", func(fl validator.FieldLevel) bool {
			return IsSubdomain(fl.Field().String())
		})
	})
}

func jsonFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
