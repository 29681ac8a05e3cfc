/*
 * @module service/utils/crypto_utils
 * @description 加密工具，用于租户源库凭据的AES加解密
 * @architecture 工具层
 * @stateFlow 明文凭据 -> AES-CFB加密 -> base64存储；读取时逆向
 * @rules 密钥通过PBKDF2从环境密钥派生，IV随机生成并前置于密文
 * @dependencies crypto/aes, crypto/cipher, golang.org/x/crypto/pbkdf2
 * @refs service/tenant/tenant_service.go
 */

package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// 密钥派生的固定盐值，变更会导致历史密文不可解
var kdfSalt = []byte("recomind-credential-salt")

// CryptoUtils 加密工具
type CryptoUtils struct {
	key []byte
}

// NewCryptoUtils 创建加密工具实例
// key为空时使用默认密钥，仅供开发环境
func NewCryptoUtils(key string) *CryptoUtils {
	if key == "" {
		key = "recomind-default-credential-key"
	}
	return &CryptoUtils{
		key: pbkdf2.Key([]byte(key), kdfSalt, 4096, 32, sha256.New),
	}
}

// AESEncrypt AES-CFB加密，返回base64编码的 IV+密文
func (cu *CryptoUtils) AESEncrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(cu.key)
	if err != nil {
		return "", fmt.Errorf("创建AES块失败: %v", err)
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("生成IV失败: %v", err)
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], []byte(plaintext))

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// AESDecrypt AES-CFB解密
func (cu *CryptoUtils) AESDecrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64解码失败: %v", err)
	}
	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("密文长度不足")
	}

	block, err := aes.NewCipher(cu.key)
	if err != nil {
		return "", fmt.Errorf("创建AES块失败: %v", err)
	}

	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)

	return string(plaintext), nil
}
