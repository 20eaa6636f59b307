package email

import "html/template"

var verificationTemplate = template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Verify Your Email</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: linear-gradient(to right, #4CAF50, #45a049); padding: 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">Verify Your Email</h1>
  </div>
  <div style="background-color: #f9f9f9; padding: 20px; border-radius: 0 0 5px 5px; box-shadow: 0 2px 5px rgba(0,0,0,0.1);">
    <p>Hello,</p>
    <p>Thank you for signing up for FreshMarket! Enter the code below to verify your email address:</p>
    <div style="text-align: center; margin: 30px 0;">
      <span style="font-size: 32px; font-weight: bold; letter-spacing: 8px; color: #4CAF50;">{{.Code}}</span>
    </div>
    <p>This code expires in 24 hours.</p>
    <p>If you didn't create an account, you can safely ignore this email.</p>
  </div>
  <div style="text-align: center; margin-top: 20px; color: #888; font-size: 0.8em;">
    <p>This is an automated message, please do not reply to this email.</p>
  </div>
</body>
</html>
`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Welcome to FreshMarket</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: linear-gradient(to right, #4CAF50, #45a049); padding: 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">Welcome to FreshMarket!</h1>
  </div>
  <div style="background-color: #f9f9f9; padding: 20px; border-radius: 0 0 5px 5px; box-shadow: 0 2px 5px rgba(0,0,0,0.1);">
    <p>Hi {{.Name}},</p>
    <p>We&rsquo;re thrilled to have you on board! &#127881;</p>
    <p>FreshMarket is built to empower farmers and buyers by connecting them directly. Here&rsquo;s what you can do:</p>
    <ul>
      <li>&#127806; List your farm produce easily</li>
      <li>&#128230; Browse quality products from local farms</li>
      <li>&#128274; Enjoy secure payments and trusted delivery</li>
    </ul>
    <p>If you have any questions or feedback, feel free to reach out to us. We&rsquo;re here to help!</p>
    <p>Happy farming,<br>The FreshMarket Team</p>
  </div>
  <div style="text-align: center; margin-top: 20px; color: #888; font-size: 0.8em;">
    <p>This is an automated message, please do not reply to this email.</p>
  </div>
</body>
</html>
`))

var passwordResetTemplate = template.Must(template.New("passwordReset").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Reset Your Password</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: linear-gradient(to right, #4CAF50, #45a049); padding: 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">Password Reset Request</h1>
  </div>
  <div style="background-color: #f9f9f9; padding: 20px; border-radius: 0 0 5px 5px; box-shadow: 0 2px 5px rgba(0,0,0,0.1);">
    <p>Hello,</p>
    <p>You requested to reset your password. Click the button below to create a new one:</p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{.ResetURL}}" style="background-color: #4CAF50; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Reset Password</a>
    </div>
    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #4CAF50;">{{.ResetURL}}</p>
    <p>This link expires in 1 hour. If you didn't request a password reset, you can safely ignore this email.</p>
  </div>
  <div style="text-align: center; margin-top: 20px; color: #888; font-size: 0.8em;">
    <p>This is an automated message, please do not reply to this email.</p>
  </div>
</body>
</html>
`))

var resetSuccessTemplate = template.Must(template.New("resetSuccess").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Password Reset Successful</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: linear-gradient(to right, #4CAF50, #45a049); padding: 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">Password Reset Successful</h1>
  </div>
  <div style="background-color: #f9f9f9; padding: 20px; border-radius: 0 0 5px 5px; box-shadow: 0 2px 5px rgba(0,0,0,0.1);">
    <p>Hello,</p>
    <p>Your password has been reset successfully. You can now log in with your new password.</p>
    <p>If you did not perform this reset, please contact support immediately.</p>
  </div>
  <div style="text-align: center; margin-top: 20px; color: #888; font-size: 0.8em;">
    <p>This is an automated message, please do not reply to this email.</p>
  </div>
</body>
</html>
`))

var productCreatedTemplate = template.Must(template.New("productCreated").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Product Created Successfully</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f2f2f2;">
  <div style="max-width: 600px; margin: auto; background-color: #ffffff; padding: 30px; border-radius: 10px; box-shadow: 0 0 10px rgba(0,0,0,0.1);">
    <h2 style="text-align: center; color: #4CAF50;">&#9989; Product Created Successfully</h2>
    <p>Dear Farmer,</p>
    <p>Your product has been successfully added to the FreshMarket platform. Here are the details:</p>
    <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
      <tr style="background-color: #f9f9f9;">
        <td style="padding: 10px; font-weight: bold;">Product Name</td>
        <td style="padding: 10px;">{{.Name}}</td>
      </tr>
      <tr>
        <td style="padding: 10px; font-weight: bold;">Category</td>
        <td style="padding: 10px;">{{.Category}}</td>
      </tr>
      <tr style="background-color: #f9f9f9;">
        <td style="padding: 10px; font-weight: bold;">Price</td>
        <td style="padding: 10px;">${{.Price}}</td>
      </tr>
      <tr>
        <td style="padding: 10px; font-weight: bold;">Quantity</td>
        <td style="padding: 10px;">{{.Quantity}}</td>
      </tr>
    </table>
    <p>Thank you for using FreshMarket to reach more buyers and grow your farm business.</p>
    <p>Best regards,<br>The FreshMarket Team</p>
    <hr style="margin-top: 40px;">
    <p style="text-align: center; font-size: 12px; color: #888;">This is an automated message. Please do not reply to this email.</p>
  </div>
</body>
</html>
`))
