package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRootCmd(t *testing.T) {
	Convey("Given a proxy that answers every route", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}))
		defer srv.Close()

		Convey("When running the check", func() {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs([]string{"--url", srv.URL, "--ticker", "FOO-BAR"})

			err := cmd.ExecuteContext(context.Background())

			Convey("Then it succeeds and prints the report", func() {
				So(err, ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "market FOO-BAR")
				So(out.String(), ShouldContainSubstring, "4/4 probes ok")
			})
		})
	})

	Convey("Given a proxy that is down", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		Convey("When running the check", func() {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs([]string{"--url", srv.URL})

			err := cmd.ExecuteContext(context.Background())

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
				So(out.String(), ShouldContainSubstring, "0/3 probes ok")
			})
		})
	})

	Convey("Given an unexpected argument", t, func() {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"extra"})

		Convey("Then the command rejects it", func() {
			So(cmd.Execute(), ShouldNotBeNil)
		})
	})
}
