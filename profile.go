/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http/pprof"
	"strings"

	"github.com/julienschmidt/httprouter"
)

var profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	prefix := strings.TrimSuffix(cfg.prefix, "/") + "/pprof"

	for _, name := range profiles {
		mux.Handler("GET", prefix+"/"+name, pprof.Handler(name))
	}

	mux.HandlerFunc("GET", prefix+"/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", prefix+"/profile", pprof.Profile)
	mux.HandlerFunc("GET", prefix+"/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", prefix+"/trace", pprof.Trace)
}
