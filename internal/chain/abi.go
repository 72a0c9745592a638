package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const wordSize = 32

// ValueKind ABI 返回值类型描述
type ValueKind int

const (
	KindUint ValueKind = iota
	KindString
	KindAddress
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindUint:
		return "uint256"
	case KindString:
		return "string"
	case KindAddress:
		return "address"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value 解码结果，只有 Kind 对应的字段有效
type Value struct {
	Kind    ValueKind
	Uint    *big.Int
	String  string
	Address common.Address
	Bool    bool
}

// Decode 按类型描述解码 eth_call 返回的十六进制数据（单个返回值）
func Decode(data string, kind ValueKind) (Value, error) {
	raw, err := decodeHex(data)
	if err != nil {
		return Value{}, err
	}
	v := Value{Kind: kind}
	switch kind {
	case KindUint:
		v.Uint, err = decodeUintBytes(raw)
	case KindString:
		v.String, err = decodeStringBytes(raw)
	case KindAddress:
		var word []byte
		if word, err = firstWord(raw); err == nil {
			v.Address = common.BytesToAddress(word[wordSize-common.AddressLength:])
		}
	case KindBool:
		var n *big.Int
		if n, err = decodeUintBytes(raw); err == nil {
			v.Bool = n.Sign() != 0
		}
	default:
		err = fmt.Errorf("%w: unsupported kind %s", ErrABIDecode, kind)
	}
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

// DecodeString 解码动态 string：offset 字 -> length 字 -> 数据，每个字节按 Latin-1 码点处理并去掉 NUL
func DecodeString(data string) (string, error) {
	v, err := Decode(data, KindString)
	return v.String, err
}

// DecodeUint 解码大端无符号整数
func DecodeUint(data string) (*big.Int, error) {
	v, err := Decode(data, KindUint)
	return v.Uint, err
}

// DecodeAddress 解码 address（取首个字的低 20 字节）
func DecodeAddress(data string) (common.Address, error) {
	v, err := Decode(data, KindAddress)
	return v.Address, err
}

// DecodeBool 解码 bool
func DecodeBool(data string) (bool, error) {
	v, err := Decode(data, KindBool)
	return v.Bool, err
}

// EncodeUint 编码为 32 字节字（0x + 64 位十六进制）
func EncodeUint(n *big.Int) (string, error) {
	if n == nil || n.Sign() < 0 || n.BitLen() > 256 {
		return "", fmt.Errorf("%w: value out of uint256 range", ErrABIDecode)
	}
	return hexutil.Encode(common.LeftPadBytes(n.Bytes(), wordSize)), nil
}

func decodeHex(data string) ([]byte, error) {
	s := strings.TrimSpace(data)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd hex length %d", ErrABIDecode, len(s))
	}
	raw, err := hexutil.Decode("0x" + s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrABIDecode, err)
	}
	return raw, nil
}

func firstWord(raw []byte) ([]byte, error) {
	if len(raw) < wordSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrABIDecode, wordSize, len(raw))
	}
	return raw[:wordSize], nil
}

// decodeUintBytes 不足一个字时按原始字节解释（部分节点返回未补齐的数值）
func decodeUintBytes(raw []byte) (*big.Int, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty uint", ErrABIDecode)
	}
	if len(raw) > wordSize {
		raw = raw[:wordSize]
	}
	return new(big.Int).SetBytes(raw), nil
}

func decodeStringBytes(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	// 非标准 ERC20（如 bytes32 name）只返回一个字
	if len(raw) == wordSize {
		return latin1(raw), nil
	}
	if len(raw) < 2*wordSize {
		return "", fmt.Errorf("%w: string needs offset and length words, got %d bytes", ErrABIDecode, len(raw))
	}
	offset, err := wordToInt(raw[:wordSize], len(raw))
	if err != nil {
		return "", fmt.Errorf("%w: bad offset: %v", ErrABIDecode, err)
	}
	if offset+wordSize > len(raw) {
		return "", fmt.Errorf("%w: offset %d out of range", ErrABIDecode, offset)
	}
	length, err := wordToInt(raw[offset:offset+wordSize], len(raw))
	if err != nil {
		return "", fmt.Errorf("%w: bad length: %v", ErrABIDecode, err)
	}
	start := offset + wordSize
	if start+length > len(raw) {
		return "", fmt.Errorf("%w: length %d exceeds data", ErrABIDecode, length)
	}
	return latin1(raw[start : start+length]), nil
}

func wordToInt(word []byte, limit int) (int, error) {
	n := new(big.Int).SetBytes(word)
	if !n.IsInt64() || n.Int64() > int64(limit) {
		return 0, fmt.Errorf("%s exceeds %d", n.String(), limit)
	}
	return int(n.Int64()), nil
}

func latin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c == 0 {
			continue
		}
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
