package signing_test

import (
	"context"
	"crypto/x509"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/mentionproxy/internal/domain/signing"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpandHome(t *testing.T) {
	Convey("Given a HOME directory", t, func() {
		home := t.TempDir()
		t.Setenv("HOME", home)

		Convey("Then ~/ paths resolve under it", func() {
			got, err := signing.ExpandHome("~/.kalshi/key.pem")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, filepath.Join(home, ".kalshi", "key.pem"))
		})

		Convey("And a bare ~ resolves to it", func() {
			got, err := signing.ExpandHome("~")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, home)
		})

		Convey("And other paths are untouched", func() {
			for _, p := range []string{"/etc/key.pem", "relative/key.pem", "~user/key.pem", ""} {
				got, err := signing.ExpandHome(p)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, p)
			}
		})
	})
}

func TestFileKeyProvider(t *testing.T) {
	Convey("Given a key stored under the home directory", t, func() {
		home := t.TempDir()
		t.Setenv("HOME", home)
		So(os.MkdirAll(filepath.Join(home, ".kalshi"), 0o700), ShouldBeNil)
		key := rsaKey(t)
		writePEM(t, filepath.Join(home, ".kalshi"), "key.pem", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))

		provider := signing.NewFileKeyProvider("~/.kalshi/key.pem")

		Convey("When loading through a tilde path", func() {
			got, err := provider.PrivateKey(context.Background())

			Convey("Then the key is parsed", func() {
				So(err, ShouldBeNil)
				So(got.Equal(key), ShouldBeTrue)
				So(provider.Path(), ShouldEqual, "~/.kalshi/key.pem")
			})
		})

		Convey("When the file is removed between calls", func() {
			_, err := provider.PrivateKey(context.Background())
			So(err, ShouldBeNil)
			So(os.Remove(filepath.Join(home, ".kalshi", "key.pem")), ShouldBeNil)

			_, err = provider.PrivateKey(context.Background())

			Convey("Then the next read fails because nothing is cached", func() {
				So(errors.Is(err, signing.ErrKeyNotFound), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := provider.PrivateKey(ctx)

			Convey("Then the context error is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given no key path", t, func() {
		_, err := signing.NewFileKeyProvider("  ").PrivateKey(context.Background())

		Convey("Then ErrNoKeyPath is returned", func() {
			So(errors.Is(err, signing.ErrNoKeyPath), ShouldBeTrue)
		})
	})

	Convey("Given a directory instead of a file", t, func() {
		_, err := signing.NewFileKeyProvider(t.TempDir()).PrivateKey(context.Background())

		Convey("Then ErrKeyRead is returned", func() {
			So(errors.Is(err, signing.ErrKeyRead), ShouldBeTrue)
		})
	})
}

func TestCachedKeyProvider(t *testing.T) {
	Convey("Given a cached provider over a counting source", t, func() {
		source := &countingProvider{key: rsaKey(t)}
		cached := signing.NewCachedKeyProvider(source)

		Convey("When the key is requested repeatedly", func() {
			for i := 0; i < 5; i++ {
				k, err := cached.PrivateKey(context.Background())
				So(err, ShouldBeNil)
				So(k, ShouldEqual, source.key)
			}

			Convey("Then the source is consulted once", func() {
				So(source.calls, ShouldEqual, 1)
			})
		})

		Convey("When the source fails first", func() {
			key := source.key
			source.key, source.err = nil, errors.New("not yet")

			_, err := cached.PrivateKey(context.Background())
			So(err, ShouldNotBeNil)

			source.key, source.err = key, nil
			got, err := cached.PrivateKey(context.Background())

			Convey("Then the failure is not cached", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, key)
				So(source.calls, ShouldEqual, 2)
			})
		})
	})
}
