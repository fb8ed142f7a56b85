package cli

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err) // only fails for a nil flag
	}
}
