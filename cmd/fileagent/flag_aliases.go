package main

import "github.com/spf13/pflag"

var agentFlagAliases = map[string]string{
	"url": "addr",
}

var promptFlagAliases = map[string]string{
	"message": "prompt",
}

func setFlagAliases(flags *pflag.FlagSet, aliases map[string]string) {
	if len(aliases) == 0 {
		return
	}

	normalize := flags.GetNormalizeFunc()
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		return normalize(f, name)
	})
}
