package main

import (
	"crypto/tls"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tawawhite/quic"
	"github.com/tawawhite/quic/transport"
)

func newServerCommand() *cobra.Command {
	var listenAddr string
	var certFile string
	var keyFile string
	var logLevel int

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Accept QUIC connections and echo every received stream back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := newConfig()
			cert, err := loadOrGenerateCert(certFile, keyFile)
			if err != nil {
				return err
			}
			config.TLS.Certificates = []tls.Certificate{cert}
			handler := &serverHandler{}
			server := quic.NewServer(config)
			server.SetHandler(handler)
			server.SetLogger(logLevel, os.Stdout)
			log.Printf("listening on %s", listenAddr)
			return server.ListenAndServe(listenAddr)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&listenAddr, "listen", "0.0.0.0:4433", "listen on the given IP:port")
	flags.StringVar(&certFile, "cert", "", "TLS certificate file (a self-signed one is generated when omitted)")
	flags.StringVar(&keyFile, "key", "", "TLS private key file")
	addLogLevelFlag(flags, &logLevel)
	return cmd
}

func loadOrGenerateCert(certFile, keyFile string) (tls.Certificate, error) {
	if certFile == "" || keyFile == "" {
		return generateSelfSignedCert([]string{"localhost"})
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "load certificate")
	}
	return cert, nil
}

// serverHandler echoes every stream it receives back to the sender,
// the server-side counterpart of clientHandler's single request/response
// exchange.
type serverHandler struct{}

func (s *serverHandler) Serve(c quic.Conn, events []transport.Event) {
	for _, e := range events {
		switch e.Type {
		case quic.EventConnAccept:
			log.Printf("%s connected", c.RemoteAddr())
		case transport.EventStream:
			st := c.Stream(e.StreamID)
			if st == nil {
				continue
			}
			buf := make([]byte, 4096)
			n, err := st.Read(buf)
			if n > 0 {
				_, _ = st.Write(buf[:n])
			}
			if err != nil {
				_ = st.Close()
			}
		case quic.EventConnClose:
			log.Printf("%s disconnected", c.RemoteAddr())
		}
	}
}
