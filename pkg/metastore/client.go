package metastore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/apache/thrift/lib/go/thrift"
)

const bufferSize = 8192

// clientStrategy socket之上的transport和protocol组合，由Config决定一次，不随连接变化
type clientStrategy struct {
	wrap     func(thrift.TTransport) thrift.TTransport
	protocol thrift.TProtocolFactory
}

func strategyFor(transport, protocol string) (clientStrategy, error) {
	var s clientStrategy
	switch transport {
	case TransportBuffered, "":
		s.wrap = func(t thrift.TTransport) thrift.TTransport {
			return thrift.NewTBufferedTransport(t, bufferSize)
		}
	case TransportFramed:
		s.wrap = func(t thrift.TTransport) thrift.TTransport {
			return thrift.NewTFramedTransport(t)
		}
	default:
		return s, fmt.Errorf("metastore: unsupported transport %q", transport)
	}

	switch protocol {
	case ProtocolBinary, "":
		s.protocol = thrift.NewTBinaryProtocolFactoryDefault()
	case ProtocolCompact:
		s.protocol = thrift.NewTCompactProtocolFactory()
	default:
		return s, fmt.Errorf("metastore: unsupported protocol %q", protocol)
	}
	return s, nil
}

// Client 池化的 Hive Metastore 连接
//
// 实现了 thrift.TClient，生成的metastore stub可以直接建在它上面。
// Reconnect 原地重建连接，重连前拿到的引用之后仍然可用。
type Client struct {
	conf     Config
	strategy clientStrategy

	addr      string
	socket    *thrift.TSocket
	transport thrift.TTransport
	tclient   *thrift.TStandardClient
}

var _ thrift.TClient = (*Client)(nil)

func newClient(conf Config, strategy clientStrategy) (*Client, error) {
	c := &Client{conf: conf, strategy: strategy}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

// open 按顺序连接配置的URIs，保留第一个连上的
func (c *Client) open() error {
	var errs []error
	for _, uri := range c.conf.URIs {
		addr, err := hostPort(uri)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := c.dial(addr); err != nil {
			log.WithField("uri", uri).WithError(err).Debug("failed to open metastore socket")
			errs = append(errs, err)
			continue
		}
		return nil
	}
	if len(errs) == 0 {
		return errors.New("metastore: no uris configured")
	}
	return errors.Join(errs...)
}

func (c *Client) dial(addr string) error {
	socket, err := thrift.NewTSocketTimeout(addr, c.conf.ConnectTimeout.Duration())
	if err != nil {
		return err
	}
	if err := socket.Open(); err != nil {
		return err
	}
	if c.conf.SocketTimeout > 0 {
		if err := socket.SetTimeout(c.conf.SocketTimeout.Duration()); err != nil {
			socket.Close()
			return err
		}
	}

	transport := c.strategy.wrap(socket)
	c.addr = addr
	c.socket = socket
	c.transport = transport
	c.tclient = thrift.NewTStandardClient(
		c.strategy.protocol.GetProtocol(transport),
		c.strategy.protocol.GetProtocol(transport),
	)
	return nil
}

// hostPort 支持 "thrift://host:port" 和 "host:port"
func hostPort(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		if _, _, splitErr := net.SplitHostPort(uri); splitErr == nil {
			return uri, nil
		}
		return "", fmt.Errorf("metastore: invalid uri %q", uri)
	}
	if u.Scheme != "thrift" {
		return "", fmt.Errorf("metastore: unsupported uri scheme %q", u.Scheme)
	}
	return u.Host, nil
}

// Call 实现 thrift.TClient
func (c *Client) Call(ctx context.Context, method string, args, result thrift.TStruct) error {
	if c.tclient == nil || !c.IsOpen() {
		return thrift.NewTTransportException(thrift.NOT_OPEN, "metastore client is not open")
	}
	return c.tclient.Call(ctx, method, args, result)
}

// Reconnect 关闭当前socket，在同一个Client上重新打开
func (c *Client) Reconnect() error {
	c.Close()
	return c.open()
}

// Close 关闭底层transport，可以重复调用
func (c *Client) Close() error {
	if c.transport == nil {
		return nil
	}
	return c.transport.Close()
}

// IsOpen 底层socket是否打开
func (c *Client) IsOpen() bool {
	return c.transport != nil && c.transport.IsOpen()
}

// Addr 当前连接的 host:port
func (c *Client) Addr() string {
	return c.addr
}
