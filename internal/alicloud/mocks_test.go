package alicloud_test

import (
	ecsclient "github.com/alibabacloud-go/ecs-20140526/v4/client"
	stsclient "github.com/alibabacloud-go/sts-20150401/v2/client"
	vpcclient "github.com/alibabacloud-go/vpc-20160428/v6/client"
)

type MockSTSAPI struct {
	GetCallerIdentityFunc func() (*stsclient.GetCallerIdentityResponse, error)
}

func (m *MockSTSAPI) GetCallerIdentity() (*stsclient.GetCallerIdentityResponse, error) {
	return m.GetCallerIdentityFunc()
}

type MockVPCAPI struct {
	DescribeEipAddressesFunc func(req *vpcclient.DescribeEipAddressesRequest) (*vpcclient.DescribeEipAddressesResponse, error)
	Calls                    int
}

func (m *MockVPCAPI) DescribeEipAddresses(req *vpcclient.DescribeEipAddressesRequest) (*vpcclient.DescribeEipAddressesResponse, error) {
	m.Calls++
	if m.DescribeEipAddressesFunc == nil {
		return &vpcclient.DescribeEipAddressesResponse{}, nil
	}
	return m.DescribeEipAddressesFunc(req)
}

type MockECSAPI struct {
	DescribeInstancesFunc func(req *ecsclient.DescribeInstancesRequest) (*ecsclient.DescribeInstancesResponse, error)
}

func (m *MockECSAPI) DescribeInstances(req *ecsclient.DescribeInstancesRequest) (*ecsclient.DescribeInstancesResponse, error) {
	return m.DescribeInstancesFunc(req)
}

func strPtr(s string) *string {
	return &s
}

// instanceResponse 构造只包含一台实例的 DescribeInstances 响应
func instanceResponse(inst *ecsclient.DescribeInstancesResponseBodyInstancesInstance) *ecsclient.DescribeInstancesResponse {
	return &ecsclient.DescribeInstancesResponse{
		Body: &ecsclient.DescribeInstancesResponseBody{
			Instances: &ecsclient.DescribeInstancesResponseBodyInstances{
				Instance: []*ecsclient.DescribeInstancesResponseBodyInstancesInstance{inst},
			},
		},
	}
}
