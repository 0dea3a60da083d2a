package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/ReneKroon/ttlcache/v2"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

type (
	NewClientFunc  func(*session.Session) interface{}
	NewSessionFunc func(region, roleArn string) (*session.Session, error)
)

type AwsClientType string

const (
	S3ClientType  AwsClientType = "s3"
	SNSClientType AwsClientType = "sns"
	SQSClientType AwsClientType = "sqs"

	defaultSessionSeconds = int64(3600)
)

func newS3Client(sess *session.Session) interface{} {
	return s3.New(sess)
}
func newSNSClient(sess *session.Session) interface{} {
	return sns.New(sess)
}
func newSQSClient(sess *session.Session) interface{} {
	return sqs.New(sess)
}

// ClientManager hands out AWS clients, reusing them across warm invocations
// until the credentials they were built with are close to expiring.
type ClientManager struct {
	sessionSeconds         int64
	newSession             NewSessionFunc
	clientCache            *ttlcache.Cache
	clientMutexLookup      map[string]*sync.Mutex
	clientMutexLookupMutex sync.Mutex
}

func NewClientManager(sessionSeconds int64) *ClientManager {
	m := newClientManager(sessionSeconds, nil)
	m.newSession = m.getSession
	return m
}

func newClientManager(sessionSeconds int64, newSession NewSessionFunc) *ClientManager {
	if sessionSeconds <= 0 {
		sessionSeconds = defaultSessionSeconds
	}

	clientCacheTTL := (time.Duration(sessionSeconds) * time.Second) - (time.Duration(10) * time.Minute)
	if clientCacheTTL < time.Minute {
		clientCacheTTL = time.Minute
	}

	clientCache := ttlcache.NewCache()
	clientCache.SetTTL(clientCacheTTL)

	return &ClientManager{
		sessionSeconds:    sessionSeconds,
		newSession:        newSession,
		clientCache:       clientCache,
		clientMutexLookup: map[string]*sync.Mutex{},
	}
}

func (m *ClientManager) Close() {
	m.clientCache.Close()
}

func (m *ClientManager) getSession(region, roleArn string) (*session.Session, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil || roleArn == "" {
		return sess, err
	}

	roleSessionName := fmt.Sprintf("s3cli-test-runner-%s", uuid.New().String())
	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(roleSessionName),
		DurationSeconds: aws.Int64(m.sessionSeconds),
	}
	output, err := sts.New(sess).AssumeRole(input)
	if err != nil {
		return nil, oops.With("role_arn", roleArn).Wrapf(err, "unable to assume role")
	}

	creds := credentials.NewStaticCredentials(
		*output.Credentials.AccessKeyId,
		*output.Credentials.SecretAccessKey,
		*output.Credentials.SessionToken,
	)

	return session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: creds,
	})
}

func (m *ClientManager) getMutexForClient(cacheKey string) *sync.Mutex {
	m.clientMutexLookupMutex.Lock()
	defer m.clientMutexLookupMutex.Unlock()

	clientMutex, ok := m.clientMutexLookup[cacheKey]
	if !ok {
		clientMutex = &sync.Mutex{}
		m.clientMutexLookup[cacheKey] = clientMutex
	}
	return clientMutex
}

func (m *ClientManager) getClientFromCache(clientType AwsClientType, newClientFunc NewClientFunc, region, roleArn string) (interface{}, error) {
	cacheKey := string(clientType) + "|" + region + "|" + roleArn
	if value, err := m.clientCache.Get(cacheKey); err == nil {
		return value, nil
	}

	clientMutex := m.getMutexForClient(cacheKey)
	clientMutex.Lock()
	defer clientMutex.Unlock()

	// another caller may have filled the cache while we waited
	if value, err := m.clientCache.Get(cacheKey); err == nil {
		return value, nil
	}

	sess, err := m.newSession(region, roleArn)
	if err != nil {
		return nil, err
	}

	newClient := newClientFunc(sess)
	m.clientCache.Set(cacheKey, newClient)
	return newClient, nil
}

func (m *ClientManager) S3(region, roleArn string) (s3iface.S3API, error) {
	client, err := m.getClientFromCache(S3ClientType, newS3Client, region, roleArn)
	if err != nil {
		return nil, err
	}

	s3Client, ok := client.(*s3.S3)
	if !ok {
		return nil, fmt.Errorf("unable to type assert client: %v", client)
	}
	return s3Client, nil
}

func (m *ClientManager) SNS(region string) (snsiface.SNSAPI, error) {
	client, err := m.getClientFromCache(SNSClientType, newSNSClient, region, "")
	if err != nil {
		return nil, err
	}

	snsClient, ok := client.(*sns.SNS)
	if !ok {
		return nil, fmt.Errorf("unable to type assert client: %v", client)
	}
	return snsClient, nil
}

func (m *ClientManager) SQS(region string) (sqsiface.SQSAPI, error) {
	client, err := m.getClientFromCache(SQSClientType, newSQSClient, region, "")
	if err != nil {
		return nil, err
	}

	sqsClient, ok := client.(*sqs.SQS)
	if !ok {
		return nil, fmt.Errorf("unable to type assert client: %v", client)
	}
	return sqsClient, nil
}
