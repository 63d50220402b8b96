package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/example/orderdesk/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// leaseTTL is in seconds.
const leaseTTL = 30

type ServiceDiscovery struct {
	client *clientv3.Client
	config *config.EtcdConfig
	logger *zap.Logger
}

type ServiceInstance struct {
	Name   string
	Scheme string
	Host   string
	Port   int
}

// URL is the base URL of the instance, http unless registered otherwise.
func (i *ServiceInstance) URL() string {
	scheme := i.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(i.Host, strconv.Itoa(i.Port)))
}

func NewServiceDiscovery(cfg *config.EtcdConfig, logger *zap.Logger) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &ServiceDiscovery{
		client: cli,
		config: cfg,
		logger: logger.Named("discovery"),
	}, nil
}

func (sd *ServiceDiscovery) serviceKey(name string) string {
	return fmt.Sprintf("%s%s/", sd.config.Prefix, name)
}

func (sd *ServiceDiscovery) instanceKey(instance *ServiceInstance) string {
	return sd.serviceKey(instance.Name) + net.JoinHostPort(instance.Host, strconv.Itoa(instance.Port))
}

// Register publishes instance under a lease kept alive until ctx ends.
func (sd *ServiceDiscovery) Register(ctx context.Context, instance *ServiceInstance) error {
	lease, err := sd.client.Grant(ctx, leaseTTL)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	_, err = sd.client.Put(ctx, sd.instanceKey(instance), instance.URL(), clientv3.WithLease(lease.ID))
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, kaerr := sd.client.KeepAlive(ctx, lease.ID)
	if kaerr != nil {
		return fmt.Errorf("failed to keep alive: %w", kaerr)
	}

	go func() {
		for range ch {
		}
		sd.logger.Info("Registration lease ended", zap.String("service", instance.Name))
	}()

	return nil
}

func (sd *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	resp, err := sd.client.Get(ctx, sd.serviceKey(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover service: %w", err)
	}

	var instances []*ServiceInstance
	for _, kv := range resp.Kvs {
		inst, err := ParseInstance(serviceName, string(kv.Value))
		if err != nil {
			sd.logger.Warn("Skipping malformed service entry",
				zap.String("key", string(kv.Key)),
				zap.Error(err))
			continue
		}
		instances = append(instances, inst)
	}

	return instances, nil
}

// ResolveURL returns the base URL of the first registered instance of
// serviceName, or fallback when none is registered or etcd fails.
func (sd *ServiceDiscovery) ResolveURL(ctx context.Context, serviceName, fallback string) string {
	instances, err := sd.Discover(ctx, serviceName)
	if err != nil || len(instances) == 0 {
		sd.logger.Info("Using default address for service",
			zap.String("service", serviceName),
			zap.String("address", fallback),
			zap.Error(err))
		return fallback
	}

	url := instances[0].URL()
	sd.logger.Info("Discovered service", zap.String("service", serviceName), zap.String("address", url))
	return url
}

// Watch calls fn with the current instances of serviceName every time its
// registrations change, until ctx ends.
func (sd *ServiceDiscovery) Watch(ctx context.Context, serviceName string, fn func([]*ServiceInstance)) {
	wch := sd.client.Watch(ctx, sd.serviceKey(serviceName), clientv3.WithPrefix())
	go func() {
		for resp := range wch {
			if err := resp.Err(); err != nil {
				sd.logger.Warn("Service watch failed", zap.String("service", serviceName), zap.Error(err))
				continue
			}
			instances, err := sd.Discover(ctx, serviceName)
			if err != nil {
				sd.logger.Warn("Service lookup after change failed", zap.Error(err))
				continue
			}
			fn(instances)
		}
	}()
}

func (sd *ServiceDiscovery) Deregister(ctx context.Context, instance *ServiceInstance) error {
	_, err := sd.client.Delete(ctx, sd.instanceKey(instance))
	if err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}

func (sd *ServiceDiscovery) Close() error {
	return sd.client.Close()
}

// ParseInstance reads a registration value, either "host:port" or
// "scheme://host:port".
func ParseInstance(name, value string) (*ServiceInstance, error) {
	inst := &ServiceInstance{Name: name}

	addr := strings.TrimSpace(value)
	if scheme, rest, ok := strings.Cut(addr, "://"); ok {
		inst.Scheme = scheme
		addr = rest
	}
	addr = strings.TrimSuffix(addr, "/")

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid service address %q: %w", value, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid service port in %q", value)
	}

	inst.Host = host
	inst.Port = port
	return inst, nil
}
