// Package config defines the settings that drive version derivation and
// provides helpers to load, validate and save them in YAML format.
//
// Every field has a default matching the stock Flutter/HarmonyOS build hook,
// so a project without a buildstamp.yaml still gets a complete payload.
package config
